// Package elements loads the code-element list produced by an upstream parser.
package elements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

type document struct {
	Elements []docgen.CodeElement `json:"elements"`
}

// LoadFile reads elements from a JSON file. See Decode for the accepted shapes.
func LoadFile(path string) ([]docgen.CodeElement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elements file: %w", err)
	}
	defer f.Close()

	elements, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return elements, nil
}

// Decode accepts either a bare JSON array of elements or an object with an
// "elements" array. Unknown fields are ignored.
func Decode(r io.Reader) ([]docgen.CodeElement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read elements: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty elements document", docgen.ErrInvalidInput)
	}

	if data[0] == '[' {
		var elements []docgen.CodeElement
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, fmt.Errorf("%w: decode elements: %w", docgen.ErrInvalidInput, err)
		}
		return elements, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode elements: %w", docgen.ErrInvalidInput, err)
	}
	return doc.Elements, nil
}
