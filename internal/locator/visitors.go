package locator

// The visitors are pure shape checks over parsed statements. They carry no
// state and never mutate, so the same recognizers serve insert placement,
// citation lookup, and the corpus-wide rename scan.

// IsAssignTo reports whether stmt is a declaration whose key equals name.
func IsAssignTo(stmt *Statement, name string) bool {
	return stmt != nil && stmt.Decl != nil && stmt.Decl.Key == name
}

// IsCallStatement reports whether stmt is a bare call statement (the shape
// used for standalone citation records).
func IsCallStatement(stmt *Statement) bool {
	return stmt != nil && stmt.Call != nil
}

// References returns the span of every bare-name occurrence of key inside
// decl's arguments, recursing into list and dict literals and nested calls.
// A declaration may reference the same key more than once; every occurrence
// is returned, in source order.
func References(decl *Declaration, key string) []Span {
	if decl == nil {
		return nil
	}
	var spans []Span
	for i := range decl.Positional {
		collectNames(&decl.Positional[i], key, &spans)
	}
	for i := range decl.Keywords {
		collectNames(&decl.Keywords[i].Value, key, &spans)
	}
	return spans
}

// CallReferences is References for a bare call statement's arguments.
func CallReferences(call *CallInfo, key string) []Span {
	if call == nil {
		return nil
	}
	var spans []Span
	for i := range call.Args {
		collectNames(&call.Args[i], key, &spans)
	}
	return spans
}

func collectNames(e *Expr, key string, spans *[]Span) {
	if e.Kind == ExprName && e.Name == key {
		*spans = append(*spans, e.Span)
	}
	for i := range e.Elements {
		collectNames(&e.Elements[i], key, spans)
	}
}
