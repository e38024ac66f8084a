package docgen

import (
	"log/slog"
	"sort"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// ClusterElements groups elements by class. Members whose class is not among the
// elements go to the orphan cluster of their kind, so a cluster without a class
// always has an orphan key. Clusters are sorted by key with the orphan clusters
// last; members keep their input order.
func ClusterElements(elements []docgen.CodeElement) []docgen.ClassCluster {
	clusters := make(map[string]*docgen.ClassCluster)
	get := func(key string) *docgen.ClassCluster {
		c, ok := clusters[key]
		if !ok {
			c = &docgen.ClassCluster{Key: key}
			clusters[key] = c
		}
		return c
	}

	for i := range elements {
		e := elements[i]
		if e.Kind != docgen.KindClass {
			continue
		}
		c := get(e.QualifiedName)
		if c.Class != nil {
			slog.Warn("duplicate class element ignored", "qualified_name", e.QualifiedName)
			continue
		}
		c.Class = &e
	}

	for _, e := range elements {
		if e.Kind == docgen.KindClass {
			continue
		}
		key := docgen.ClusterKey(e)
		if c, ok := clusters[key]; !ok || c.Class == nil {
			key = orphanKey(e.Kind)
		}
		c := get(key)
		if e.Kind == docgen.KindField {
			c.Fields = append(c.Fields, e)
		} else {
			c.Methods = append(c.Methods, e)
		}
	}

	result := make([]docgen.ClassCluster, 0, len(clusters))
	for _, c := range clusters {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		oi, oj := orphanRank(result[i].Key), orphanRank(result[j].Key)
		if oi != oj {
			return oi < oj
		}
		return result[i].Key < result[j].Key
	})
	return result
}

func orphanKey(kind docgen.ElementKind) string {
	if kind == docgen.KindField {
		return docgen.OrphanFieldsKey
	}
	return docgen.OrphanMethodsKey
}

func orphanRank(key string) int {
	switch key {
	case docgen.OrphanFieldsKey:
		return 1
	case docgen.OrphanMethodsKey:
		return 2
	default:
		return 0
	}
}
