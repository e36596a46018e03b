package ast

// System is the root of a parsed SiMAL file. Exactly one system block
// exists per file; it owns top-level attributes and the declared
// services, both in source order.
type System struct {
	Attributes *Map
	Services   []*Service
}

// Service is a named service declared with the `service` keyword.
type Service struct {
	Name        string
	Attributes  *Map
	Annotations []*Annotation
}

// Block is a generic component of the form `kind Name { ... }`. Blocks
// are created only inside `components` lists (or as a colon-less
// component-shaped attribute value); a block never has kind "service",
// since services are their own node type.
type Block struct {
	Kind        string
	Name        string
	Attributes  *Map
	Annotations []*Annotation
}

func (*Block) isValue() {}
