package utils_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/temirov/ebixref/internal/utils"
)

func TestShapeRemovesEmptyValues(t *testing.T) {
	input := map[string]interface{}{
		"sourceDomain": "uniprot",
		"empty":        "",
		"none":         nil,
		"list":         []interface{}{},
		"nested":       map[string]interface{}{"blank": ""},
		"count":        float64(0),
		"flag":         false,
	}
	expected := map[string]interface{}{
		"sourceDomain": "uniprot",
		"count":        float64(0),
		"flag":         false,
	}
	actual := utils.Shape(input, utils.DefaultShapeLimits())
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("unexpected shaped value (-want +got):\n%s", diff)
	}
}

func TestShapeTruncatesArrays(t *testing.T) {
	nested := []interface{}{"a", "b", "c", "d"}
	input := []interface{}{
		map[string]interface{}{"ids": nested},
		map[string]interface{}{"ids": nested},
		map[string]interface{}{"ids": nested},
	}
	limits := utils.ShapeLimits{MaxDepth: 6, TopLevelItems: 2, NestedItems: 3}
	actual := utils.Shape(input, limits)
	expected := []interface{}{
		map[string]interface{}{"ids": []interface{}{"a", "b", "c"}},
		map[string]interface{}{"ids": []interface{}{"a", "b", "c"}},
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("unexpected shaped value (-want +got):\n%s", diff)
	}
}

func TestShapeDropsContainersBeyondDepth(t *testing.T) {
	input := map[string]interface{}{
		"name": "root",
		"deep": map[string]interface{}{"deeper": map[string]interface{}{"value": "x"}},
	}
	actual := utils.Shape(input, utils.ShapeLimits{MaxDepth: 2})
	shaped, ok := actual.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", actual)
	}
	if _, exists := shaped["deep"]; exists {
		t.Fatalf("expected deep branch to be removed once emptied, got %v", shaped["deep"])
	}
	if shaped["name"] != "root" {
		t.Fatalf("expected name to survive, got %v", shaped["name"])
	}
}

func TestShapeStructReturnsNilWhenEverythingIsEmpty(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}
	shaped, err := utils.ShapeStruct(payload{}, utils.DefaultShapeLimits())
	if err != nil {
		t.Fatalf("ShapeStruct error: %v", err)
	}
	if shaped != nil {
		t.Fatalf("expected nil, got %v", shaped)
	}
}
