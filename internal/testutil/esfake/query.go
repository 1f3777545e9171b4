package esfake

import "fmt"

// matches evaluates the subset of the query DSL the indexer sends:
// match_all, match, term, terms and bool must/filter/must_not.
func matches(query, source map[string]any) bool {
	if len(query) == 0 {
		return true
	}

	for kind, raw := range query {
		clause, _ := raw.(map[string]any)
		switch kind {
		case "match_all":
			continue
		case "match", "term":
			for field, want := range clause {
				if obj, ok := want.(map[string]any); ok {
					if v, found := obj["query"]; found {
						want = v
					} else {
						want = obj["value"]
					}
				}
				if !fieldEquals(source[field], want) {
					return false
				}
			}
		case "terms":
			for field, values := range clause {
				list, _ := values.([]any)
				found := false
				for _, v := range list {
					if fieldEquals(source[field], v) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		case "bool":
			for _, occur := range []string{"must", "filter"} {
				for _, sub := range clauses(clause[occur]) {
					if !matches(sub, source) {
						return false
					}
				}
			}
			for _, sub := range clauses(clause["must_not"]) {
				if matches(sub, source) {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

func clauses(raw any) []map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func fieldEquals(got, want any) bool {
	if list, ok := got.([]any); ok {
		for _, item := range list {
			if fmt.Sprint(item) == fmt.Sprint(want) {
				return true
			}
		}
		return false
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}
