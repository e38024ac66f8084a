package docgen

import (
	"crypto/sha256"
	"hash"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sections lists the purposes generated for each element kind.
type Sections map[ElementKind][]Purpose

// Purposes returns the distinct purposes across all kinds, sorted.
func (s Sections) Purposes() []Purpose {
	seen := make(map[Purpose]bool)
	var out []Purpose
	for _, ps := range s {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GenerateClusterHash creates a deterministic hash of everything that influences a
// cluster's generated document: its elements, the sections generated per kind, and
// for each purpose the ordered models asked with their generation settings.
// Credentials are never hashed.
func GenerateClusterHash(cluster ClassCluster, gc *GenerationContext, sections Sections) []byte {
	h := sha256.New()

	writeNFC(h, cluster.Key)

	elements := make([]CodeElement, 0, cluster.Size())
	if cluster.Class != nil {
		elements = append(elements, *cluster.Class)
	}
	elements = append(elements, cluster.Fields...)
	elements = append(elements, cluster.Methods...)

	// Sort by kind then qualified name so input order does not matter
	sort.SliceStable(elements, func(i, j int) bool {
		if elements[i].Kind != elements[j].Kind {
			return elements[i].Kind < elements[j].Kind
		}
		if elements[i].QualifiedName != elements[j].QualifiedName {
			return elements[i].QualifiedName < elements[j].QualifiedName
		}
		if elements[i].Signature != elements[j].Signature {
			return elements[i].Signature < elements[j].Signature
		}
		return elements[i].Line < elements[j].Line
	})

	writeCount(h, "elements", len(elements))
	for _, e := range elements {
		writeNFC(h, string(e.Kind))
		writeNFC(h, e.QualifiedName)
		writeNFC(h, e.Name)
		writeNFC(h, normalizeWhitespace(e.Signature))
		writeNFC(h, normalizeFilePath(e.FilePath))
		writeNFC(h, strconv.Itoa(e.Line))
		writeNFC(h, e.Context)
		writeCount(h, "parameters", len(e.Parameters))
		for _, p := range e.Parameters {
			writeNFC(h, p.Name)
			writeNFC(h, p.Type)
		}
		writeCount(h, "annotations", len(e.Annotations))
		for _, a := range e.Annotations {
			writeNFC(h, a)
		}
	}

	kinds := make([]string, 0, len(sections))
	for k := range sections {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	writeCount(h, "sections", len(kinds))
	for _, k := range kinds {
		ps := sections[ElementKind(k)]
		writeNFC(h, k)
		writeCount(h, "purposes", len(ps))
		for _, p := range ps {
			writeNFC(h, string(p))
		}
	}

	// Model order matters: it decides tie-breaks and single-model purposes
	for _, p := range sections.Purposes() {
		var models []ModelDescriptor
		if gc != nil {
			models = gc.ModelsFor(p)
		}
		writeNFC(h, string(p))
		writeCount(h, "models", len(models))
		for _, m := range models {
			writeNFC(h, m.Name)
			writeNFC(h, strings.ToLower(strings.TrimSpace(m.Provider)))
			writeNFC(h, strings.TrimSpace(m.Endpoint))
			writeNFC(h, strconv.Itoa(m.MaxTokens))
			writeNFC(h, strconv.FormatFloat(m.Temperature, 'g', -1, 64))
		}
	}

	return h.Sum(nil)
}

// writeCount frames a list so adjacent lists cannot run into each other.
func writeCount(h hash.Hash, tag string, n int) {
	h.Write([]byte(tag))
	h.Write([]byte{1})
	h.Write([]byte(strconv.Itoa(n)))
	h.Write([]byte{0})
}

func writeNFC(h hash.Hash, s string) {
	h.Write(norm.NFC.Bytes([]byte(s)))
	h.Write([]byte{0})
}

// normalizeFilePath converts backslashes to forward slashes and cleans the path.
func normalizeFilePath(path string) string {
	if path == "" {
		return ""
	}
	normalized := strings.ReplaceAll(path, "\\", "/")
	normalized = filepath.ToSlash(filepath.Clean(normalized))
	return strings.TrimPrefix(normalized, "/")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
