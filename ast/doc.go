// Package ast defines types for modeling the AST (Abstract Syntax
// Tree) for the SiMAL source language.
//
// The root of the tree for a SiMAL file is a *System. A system owns an
// ordered set of attributes and an ordered sequence of services. Values
// attached to attributes and map entries form a small tagged union: a
// scalar string, an ordered map, an ordered list, or one of the node
// types (*Block, *Field, *Method, *Endpoint, or *Attribute for annotated
// list elements). All containers preserve insertion order.
//
// Position information is tracked using a *FileInfo, calling AddLine as
// the file is tokenized by the lexer. Tokens record byte offsets only;
// line and column are derived on demand via FileInfo.SourcePos.
//
// Nodes are produced by the parser and are not mutated afterwards except
// by the signature enrichment pass, which fills the derived shape and
// input/output fields on *Endpoint and *Method. A returned tree is
// otherwise immutable and safe to share.
package ast
