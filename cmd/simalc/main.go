// Command simalc parses SiMAL schema files and converts them to JSON.
//
// By default each input file <name>.simal produces <name>.json (the
// full, round-trippable form) and <name>_simple.json (the flattened
// form). One of --json, --simple, or --max-simple limits the output to
// that single form.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
