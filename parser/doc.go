// Package parser contains the tokenizer and recursive-descent parser
// for the SiMAL language.
//
// The entry point is Parse, which tokenizes a source buffer, builds the
// *ast.System tree, and runs signature enrichment over the endpoints it
// found. All parse errors carry line and column information and abort
// the parse; no partial AST is returned. Enrichment failures are the
// one exception: they are reported as warnings and leave the affected
// endpoint with its raw request/response strings.
//
// The list grammar is context sensitive. When the parser enters a list
// it dispatches on the surrounding attribute's key: lists named
// components, fields, methods, and endpoints use specialized item
// grammars, everything else uses the generic scalar/map item rules.
package parser
