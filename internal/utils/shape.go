package utils

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	// DefaultShapeMaxDepth is the deepest container level kept by Shape.
	DefaultShapeMaxDepth = 6
	// DefaultShapeTopLevelItems bounds arrays at the root.
	DefaultShapeTopLevelItems = 10
	// DefaultShapeNestedItems bounds arrays below the root.
	DefaultShapeNestedItems = 10
)

// ShapeLimits bounds the size of a shaped payload.
type ShapeLimits struct {
	MaxDepth      int
	TopLevelItems int
	NestedItems   int
}

// DefaultShapeLimits returns the stock limits.
func DefaultShapeLimits() ShapeLimits {
	return ShapeLimits{
		MaxDepth:      DefaultShapeMaxDepth,
		TopLevelItems: DefaultShapeTopLevelItems,
		NestedItems:   DefaultShapeNestedItems,
	}
}

// Shape removes empty values and truncates containers of a decoded JSON tree.
// It returns nil when nothing survives.
func Shape(value interface{}, limits ShapeLimits) interface{} {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultShapeMaxDepth
	}
	if limits.TopLevelItems <= 0 {
		limits.TopLevelItems = DefaultShapeTopLevelItems
	}
	if limits.NestedItems <= 0 {
		limits.NestedItems = DefaultShapeNestedItems
	}
	return shapeValue(value, 0, limits)
}

// ShapeStruct round-trips a typed value through encoding/json and shapes the result.
func ShapeStruct(value interface{}, limits ShapeLimits) (interface{}, error) {
	encoded, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return nil, fmt.Errorf("encode value for shaping: %w", marshalErr)
	}
	var decoded interface{}
	if unmarshalErr := json.Unmarshal(encoded, &decoded); unmarshalErr != nil {
		return nil, fmt.Errorf("decode value for shaping: %w", unmarshalErr)
	}
	return Shape(decoded, limits), nil
}

func shapeValue(value interface{}, depth int, limits ShapeLimits) interface{} {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		if typed == "" {
			return nil
		}
		return typed
	case []interface{}:
		if depth >= limits.MaxDepth {
			return nil
		}
		limit := limits.NestedItems
		if depth == 0 {
			limit = limits.TopLevelItems
		}
		shaped := make([]interface{}, 0, len(typed))
		for _, element := range typed {
			if len(shaped) >= limit {
				break
			}
			cleaned := shapeValue(element, depth+1, limits)
			if cleaned == nil {
				continue
			}
			shaped = append(shaped, cleaned)
		}
		if len(shaped) == 0 {
			return nil
		}
		return shaped
	case map[string]interface{}:
		if depth >= limits.MaxDepth {
			return nil
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		shaped := make(map[string]interface{}, len(typed))
		for _, key := range keys {
			cleaned := shapeValue(typed[key], depth+1, limits)
			if cleaned == nil {
				continue
			}
			shaped[key] = cleaned
		}
		if len(shaped) == 0 {
			return nil
		}
		return shaped
	default:
		return typed
	}
}
