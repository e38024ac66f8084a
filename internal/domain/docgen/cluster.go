package docgen

import (
	"path"
	"strings"
)

const (
	OrphanFieldsKey  = "_fields_without_class"
	OrphanMethodsKey = "_methods_without_class"
)

// ClassCluster groups a class with its fields and methods. Class is nil for the
// two orphan clusters.
type ClassCluster struct {
	Class   *CodeElement
	Fields  []CodeElement
	Key     string
	Methods []CodeElement
}

// IsOrphan reports whether the cluster collects elements without a parent class.
func (c ClassCluster) IsOrphan() bool {
	return c.Key == OrphanFieldsKey || c.Key == OrphanMethodsKey
}

// Size returns the number of elements in the cluster.
func (c ClassCluster) Size() int {
	n := len(c.Fields) + len(c.Methods)
	if c.Class != nil {
		n++
	}
	return n
}

// Title returns the heading used for the cluster's document.
func (c ClassCluster) Title() string {
	switch c.Key {
	case OrphanFieldsKey:
		return "Fields without class"
	case OrphanMethodsKey:
		return "Methods without class"
	}
	if c.Class != nil && c.Class.Name != "" {
		return c.Class.Name
	}
	if i := strings.LastIndex(c.Key, "."); i >= 0 {
		return c.Key[i+1:]
	}
	return c.Key
}

// DocumentPath maps the cluster key to a relative output path, one directory per
// dotted package segment.
func (c ClassCluster) DocumentPath(ext string) string {
	if c.IsOrphan() {
		return c.Key + ext
	}
	parts := strings.Split(c.Key, ".")
	for i, p := range parts {
		p = strings.Map(func(r rune) rune {
			switch r {
			case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
				return '_'
			}
			return r
		}, p)
		if p == "" || p == "." || p == ".." {
			p = "_"
		}
		parts[i] = p
	}
	return path.Join(parts...) + ext
}

// ClusterKey returns the key of the cluster an element belongs to. Classes key on
// their own qualified name; members key on their qualified name minus the last
// dotted segment; members without a dot fall into the orphan key for their kind.
func ClusterKey(e CodeElement) string {
	if e.Kind == KindClass {
		return e.QualifiedName
	}
	i := strings.LastIndex(e.QualifiedName, ".")
	if i < 0 {
		if e.Kind == KindField {
			return OrphanFieldsKey
		}
		return OrphanMethodsKey
	}
	return e.QualifiedName[:i]
}
