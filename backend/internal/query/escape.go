package query

import (
	"strings"

	"socialgraph/backend/internal/identity"
)

// EscapedID is an identity value that has been made safe to embed inside a
// single-quoted query string literal. The zero value is the empty literal;
// any other value can only be produced by Escape, so a template that takes an
// EscapedID cannot be handed unescaped input.
type EscapedID struct {
	raw     string
	literal string
}

// Escape escapes backslashes first and then the ' delimiter
func Escape(s string) EscapedID {
	literal := strings.ReplaceAll(s, `\`, `\\`)
	literal = strings.ReplaceAll(literal, `'`, `\'`)
	return EscapedID{raw: s, literal: literal}
}

// Literal returns the escaped form, without surrounding quotes
func (e EscapedID) Literal() string {
	return e.literal
}

// Raw returns the original value. Only bound query parameters may use it.
func (e EscapedID) Raw() string {
	return e.raw
}

// String implements fmt.Stringer with the quoted literal
func (e EscapedID) String() string {
	return "'" + e.literal + "'"
}

// Vertex is a profile vertex identity ready for interpolation
type Vertex struct {
	ID           EscapedID
	PartitionKey EscapedID
	ProfileID    EscapedID
}

// EscapeVertex escapes every field of a resolved vertex
func EscapeVertex(v identity.Vertex) Vertex {
	return Vertex{
		ID:           Escape(v.ID),
		PartitionKey: Escape(v.PartitionKey),
		ProfileID:    Escape(v.ProfileID),
	}
}
