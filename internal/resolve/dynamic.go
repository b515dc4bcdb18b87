package resolve

import (
	"strings"

	"github.com/kestrel-ai/kestrel/internal/taskstore"
)

// dynamicHarvest separates values found directly in a prior result from
// values derived from a list payload's default (first element) pick. The
// two carry different confidences.
type dynamicHarvest struct {
	direct      map[string]any
	listDerived map[string]any
	// lists keeps whole list payloads keyed by the task that produced them.
	lists map[string][]any
}

func newDynamicHarvest() dynamicHarvest {
	return dynamicHarvest{
		direct:      make(map[string]any),
		listDerived: make(map[string]any),
		lists:       make(map[string][]any),
	}
}

// merged flattens the harvest into the display map stored on the snapshot.
// Direct values win over list-derived ones. Whole list payloads go in under
// the producing task's ID, which can never collide with a parameter name.
func (h dynamicHarvest) merged() map[string]any {
	out := make(map[string]any, len(h.direct)+len(h.listDerived)+len(h.lists))
	for k, v := range h.listDerived {
		out[k] = v
	}
	for k, v := range h.direct {
		out[k] = v
	}
	for taskID, list := range h.lists {
		out[taskID] = list
	}
	return out
}

// extractDynamic scans every completed task's result payload for
// identifier-looking fields. Object payloads contribute direct candidates;
// list payloads are recorded whole and their first element contributes
// list-derived candidates.
func extractDynamic(cc taskstore.CompletedContext) dynamicHarvest {
	h := newDynamicHarvest()
	for taskID, result := range cc.Results {
		switch v := result.(type) {
		case map[string]any:
			harvestObject(v, h.direct)
		case []any:
			h.lists[taskID] = v
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok {
					harvestObject(first, h.listDerived)
				}
			}
		}
	}
	return h
}

// harvestObject walks an object payload one level of nesting deep and
// records identifier-looking fields into dst. Existing entries are kept so
// earlier (older) results do not get clobbered mid-scan.
func harvestObject(obj map[string]any, dst map[string]any) {
	for key, val := range obj {
		switch nested := val.(type) {
		case map[string]any:
			for nk, nv := range nested {
				if isIdentifierField(nk) {
					put(dst, canonicalFieldName(key, nk), nv)
				}
			}
		case []any:
			if len(nested) > 0 {
				if first, ok := nested[0].(map[string]any); ok {
					for nk, nv := range first {
						if isIdentifierField(nk) {
							put(dst, canonicalFieldName(key, nk), nv)
						}
					}
				}
			}
		default:
			if isIdentifierField(key) {
				put(dst, key, val)
			}
		}
	}
}

func put(dst map[string]any, key string, val any) {
	if _, exists := dst[key]; !exists {
		dst[key] = val
	}
}

// isIdentifierField reports whether a field name looks like an identifier
// worth harvesting for later tasks.
func isIdentifierField(name string) bool {
	n := strings.ToLower(name)
	if n == "id" {
		return true
	}
	return strings.HasSuffix(n, "id") || strings.HasSuffix(n, "_id") || n == "email"
}

// canonicalFieldName qualifies a bare "id" with its parent entity so that a
// payload like {"company": {"id": "comp_1"}} harvests as companyId.
func canonicalFieldName(parent, field string) string {
	if strings.ToLower(field) != "id" {
		return field
	}
	parent = strings.TrimSuffix(strings.ToLower(parent), "s")
	if parent == "" {
		return field
	}
	return parent + "Id"
}
