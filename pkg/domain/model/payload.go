package model

import (
	"sort"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
)

// DotPathLookup resolves a dotted path over nested JSON objects. A missing
// segment yields "".
func DotPathLookup(record map[string]any, path string) any {
	if record == nil || path == "" {
		return ""
	}

	var current any = record
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return ""
		}
		current = next
	}
	return current
}

// BuildFlatPayload keys every value by the last segment of its path. Paths
// are applied in sorted order so that a collision resolves deterministically
// (the lexically greatest path wins).
func BuildFlatPayload(values map[string]any) map[string]any {
	payload := make(map[string]any, len(values))
	for _, path := range sortedKeys(values) {
		payload[config.LastSegment(path)] = values[path]
	}
	return payload
}

// BuildNestedPayload explodes dotted keys into a tree:
// {"data.name": "A"} becomes {"data": {"name": "A"}}. When a key is both a
// leaf and a parent, the parent wins.
func BuildNestedPayload(values map[string]any) map[string]any {
	result := make(map[string]any)
	for _, path := range sortedKeys(values) {
		keys := strings.Split(path, ".")
		current := result
		for i, k := range keys {
			if i == len(keys)-1 {
				if _, isParent := current[k].(map[string]any); !isParent {
					current[k] = values[path]
				}
				break
			}
			child, ok := current[k].(map[string]any)
			if !ok {
				child = make(map[string]any)
				current[k] = child
			}
			current = child
		}
	}
	return result
}

// BuildPayload builds the payload in the shape the resource endpoint expects
func BuildPayload(shape types.PayloadShape, values map[string]any) map[string]any {
	if shape.Normalize() == types.PayloadShapeNested {
		return BuildNestedPayload(values)
	}
	return BuildFlatPayload(values)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
