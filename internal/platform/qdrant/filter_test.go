package qdrant

import (
	"errors"
	"testing"
)

func TestTranslateFilter(t *testing.T) {
	f, err := translateFilter(map[string]any{
		"language":  "dart",
		"chunkType": map[string]any{"$in": []string{"function", "class"}},
		"filePath":  map[string]any{"$ne": "README.md"},
		"$or":       []any{map[string]any{"title": "a"}, map[string]any{"title": "b"}},
	})
	if err != nil {
		t.Fatalf("translateFilter: %v", err)
	}
	if len(f.Must) != 2 || len(f.MustNot) != 1 || len(f.Should) != 2 {
		t.Fatalf("shape: must=%d must_not=%d should=%d", len(f.Must), len(f.MustNot), len(f.Should))
	}
}

func TestTranslateFilterRejectsUnknownOperator(t *testing.T) {
	_, err := translateFilter(map[string]any{"score": map[string]any{"$gt": 1}})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("want unsupported_filter got=%v", err)
	}
}
