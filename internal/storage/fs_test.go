package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempCorpus(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCorpus(t)
	content := []byte("murta2014a = Work(2014, \"noWorkflow\")\n")
	if err := s.Write("work/y2014.py", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("work/y2014.py")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempCorpus(t)
	_ = s.Write("places.py", []byte("IPAW = Place()"))
	_ = s.Write("work/y2014.py", []byte("a"))
	_ = s.Write("readme.txt", []byte("not a declaration file"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestExists(t *testing.T) {
	s := tempCorpus(t)
	if s.Exists("work/y2014.py") {
		t.Error("file should not exist yet")
	}
	_ = s.Write("work/y2014.py", []byte("x"))
	if !s.Exists("work/y2014.py") {
		t.Error("file should exist")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCorpus(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.py",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempCorpus(t)
	_ = s.Write("work/y2020.py", []byte("original"))
	if err := s.Write("work/y2020.py", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("work/y2020.py")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, "work", ".snowdrift-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/snowdrift-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "snowdrift-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
