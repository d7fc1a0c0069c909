package index

// WorkIndex defines the interface for corpus indexing operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type WorkIndex interface {
	UpsertFile(f FileRow, works []WorkRow, edges []EdgeRow) error
	DeleteFile(path string) error
	AllFileChecksums() (map[string]string, error)
	GetWork(key string) (*WorkRow, error)
	ListWorks(limit, offset, year int, class, sort string) ([]WorkRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Cites(key string) ([]string, error)
	CitedBy(key string) ([]string, error)
	Close() error
}

// Verify *DB satisfies WorkIndex at compile time.
var _ WorkIndex = (*DB)(nil)
