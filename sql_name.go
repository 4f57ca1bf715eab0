package tsubakuro

import "strings"

// TName is a dotted SQL identifier (e.g. schema.table.column), kept as a
// small value type so literal test scenarios referencing qualified names
// don't need the full (out-of-scope) SQL service to express them.
// Grounded on original_source/service/sql/name.rs.
type TName struct {
	parts []string
}

// NewTName builds a TName from its dot-separated parts, in order from
// outermost to innermost (e.g. NewTName("public", "t1", "c1")).
func NewTName(parts ...string) TName {
	return TName{parts: append([]string(nil), parts...)}
}

// ParseTName splits a dotted string into a TName.
func ParseTName(s string) TName {
	return TName{parts: strings.Split(s, ".")}
}

// String joins the parts back into dotted form.
func (n TName) String() string {
	return strings.Join(n.parts, ".")
}

// Parts returns the identifier's components.
func (n TName) Parts() []string {
	return append([]string(nil), n.parts...)
}
