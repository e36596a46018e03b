// Package simaljson lowers a parsed SiMAL system into JSON.
//
// Two renditions exist. The full form tags every node with a __type__
// discriminator and renders ordered containers as arrays of
// {key, value, annotations?} entries, so that insertion order and
// per-key annotations survive; FromFull reverses it back into an AST.
// The simple form flattens the same information for prompt consumption
// and is lossy; its max-simple variant further compresses methods and
// endpoints into single definition strings where possible.
//
// Both lowerings are pure functions over the AST and produce
// deterministic output: key order is source order, never Go map order.
package simaljson
