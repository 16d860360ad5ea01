package tree

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Find fuzzy-matches query against the names of every loaded file node and
// returns up to limit copies, best match first. Only listings that have been
// fetched are searched.
func (m *Model) Find(query string, limit int) []*Node {
	if query == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var files []*Node
	var walk func([]*Node)
	walk = func(list []*Node) {
		for _, n := range list {
			if n.Kind == KindFile {
				files = append(files, n)
				continue
			}
			walk(n.Children)
		}
	}
	walk(m.projects)

	targets := make([]string, len(files))
	for i, n := range files {
		targets[i] = n.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	if limit <= 0 || limit > len(ranks) {
		limit = len(ranks)
	}
	out := make([]*Node, 0, limit)
	for _, r := range ranks[:limit] {
		out = append(out, files[r.OriginalIndex].clone(m.active))
	}
	return out
}
