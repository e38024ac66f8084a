// Codedoc generates Markdown reference documentation for the elements of a code
// base by asking one or more language models and keeping the best answer.
//
// Usage:
//
//	# Generate documents for an element list
//	codedoc generate --elements elements.json
//
//	# Show which wire protocol each configured model will use
//	codedoc classify
//
//	# Show version information
//	codedoc version
package main

func main() {
	Execute()
}
