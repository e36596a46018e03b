package ast

// Value is the tagged union of everything that can appear as an
// attribute value, a map entry value, or a list item.
//
// The concrete types are Scalar, *Map, *List, *Block, *Field, *Method,
// *Endpoint, and *Attribute (the latter only for annotated map items
// inside lists, so their annotations survive).
type Value interface {
	isValue()
}

// Scalar is a bare string value. Bare scalars are reconstructed from
// their tokens with single spaces between them; callers that need
// byte-exact content must use quoted strings or heredocs.
type Scalar string

func (Scalar) isValue() {}

// Map is an insertion-ordered mapping. Every entry is an *Attribute;
// entries without annotations simply carry an empty annotation list.
type Map struct {
	Entries []*Attribute
}

// NewMap returns an empty ordered map.
func NewMap() *Map { return &Map{} }

func (*Map) isValue() {}

// Get returns the entry for key, or nil if the key is absent.
func (m *Map) Get(key string) *Attribute {
	if m == nil {
		return nil
	}
	for _, e := range m.Entries {
		if e.Key == key {
			return e
		}
	}
	return nil
}

// Len returns the number of entries. A nil map has length zero.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Append adds an entry, preserving insertion order. It does not check
// for duplicate keys; the parser enforces key uniqueness.
func (m *Map) Append(e *Attribute) {
	m.Entries = append(m.Entries, e)
}

// List is an insertion-ordered sequence of values.
type List struct {
	Items []Value
}

func (*List) isValue() {}

// Annotation is an @Name(args...) marker attached to the node that
// follows it in source order.
type Annotation struct {
	Name string
	Args []string
}

// Attribute is a key/value pair with optional annotations. Attributes
// are also used as list elements when a map item inside a list carries
// annotations; in that case Key is empty.
type Attribute struct {
	Key         string
	Value       Value
	Annotations []*Annotation
}

func (*Attribute) isValue() {}
