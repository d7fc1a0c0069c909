package locator

// ExprKind classifies an argument expression just far enough for the edit
// operations: bare-name references, container literals that can be edited
// element-wise, and everything else.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprName
	ExprString
	ExprNumber
	ExprList
	ExprDict
	ExprCall
)

// Expr is an argument expression with its exact source span. Elements holds
// the converted named children (list elements, dict keys and values, nested
// call arguments), which is what the reference scan recurses into.
type Expr struct {
	Span     Span
	Kind     ExprKind
	Name     string // identifier text when Kind == ExprName
	Elements []Expr
}

// Text returns the expression's source text.
func (e Expr) Text(source []byte) string { return e.Span.Text(source) }

// Keyword is one keyword argument of a declaration's call.
type Keyword struct {
	Name     string
	NameSpan Span
	Value    Expr
	Span     Span // covers name=value
}

// Declaration is a statement of the shape `key = Constructor(args...)`.
type Declaration struct {
	Key             string
	KeySpan         Span
	Constructor     string
	ConstructorSpan Span
	ArgListSpan     Span // argument list including parentheses
	Positional      []Expr
	Keywords        []Keyword
}

// Keyword returns the keyword argument with the given name, or nil.
func (d *Declaration) Keyword(name string) *Keyword {
	for i := range d.Keywords {
		if d.Keywords[i].Name == name {
			return &d.Keywords[i]
		}
	}
	return nil
}

// CallInfo describes a bare call statement (no assignment), the shape used
// for standalone citation records.
type CallInfo struct {
	Constructor string
	Args        []Expr
}

// Statement is one top-level statement. Exactly one of Decl and Call is
// non-nil for the recognized shapes; both are nil for opaque raw text, which
// is never the target of structural edits.
type Statement struct {
	Span Span
	Decl *Declaration
	Call *CallInfo
}

// File is a parsed declaration file: the immutable original text plus an
// ordered index of its top-level statements. Re-serializing a File with no
// edits is the original text itself.
type File struct {
	Path       string
	Source     []byte
	Statements []Statement
}

// Declaration returns the declaration statement for key, or nil.
func (f *File) Declaration(key string) *Statement {
	for i := range f.Statements {
		if IsAssignTo(&f.Statements[i], key) {
			return &f.Statements[i]
		}
	}
	return nil
}

// Keys returns the keys of all declarations in statement order.
func (f *File) Keys() []string {
	var out []string
	for i := range f.Statements {
		if f.Statements[i].Decl != nil {
			out = append(out, f.Statements[i].Decl.Key)
		}
	}
	return out
}
