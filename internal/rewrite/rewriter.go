// Package rewrite replaces remote resource references in a document body
// with their locally-stored counterparts.
package rewrite

import (
	"sort"
	"strings"
)

// Rewrite replaces every occurrence of each mapped source URL with its local
// path. Entries are applied longest-source-first, so a URL that is a strict
// prefix of another mapped URL cannot corrupt the longer one.
func Rewrite(body []byte, mapping map[string]string) []byte {
	if len(mapping) == 0 {
		return body
	}

	sources := make([]string, 0, len(mapping))
	for src := range mapping {
		sources = append(sources, src)
	}

	sort.Slice(sources, func(i, j int) bool {
		if len(sources[i]) != len(sources[j]) {
			return len(sources[i]) > len(sources[j])
		}
		return sources[i] < sources[j]
	})

	doc := string(body)
	for _, src := range sources {
		doc = strings.ReplaceAll(doc, src, mapping[src])
	}

	return []byte(doc)
}
