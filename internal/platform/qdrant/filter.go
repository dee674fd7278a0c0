package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

// Filters use a small Mongo-like dialect:
//
//	{"language": "dart"}                      equality
//	{"chunkType": {"$in": ["function", "class"]}}
//	{"filePath": {"$ne": "README.md"}}
//	{"$or": [{...}, {...}]}, {"$and": [...]}, {"$not": {...}}
type translatedFilter struct {
	Must    []any
	Should  []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.Should) > 0 {
		out["should"] = f.Should
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

func (f translatedFilter) empty() bool {
	return len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0
}

const filterOp = "filter_translate"

func translateFilter(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		k := strings.TrimSpace(key)
		value := filter[key]
		switch strings.ToLower(k) {
		case "":
			continue
		case "$and", "$or":
			items, ok := objectSlice(value)
			if !ok {
				return translatedFilter{}, opErr(filterOp, OperationErrorValidation, fmt.Sprintf("operator %s expects array of objects", k), nil)
			}
			for _, item := range items {
				sub, err := translateFilter(item)
				if err != nil {
					return translatedFilter{}, err
				}
				if sub.empty() {
					continue
				}
				if k == "$and" {
					out.Must = append(out.Must, sub.asMap())
				} else {
					out.Should = append(out.Should, sub.asMap())
				}
			}
		case "$not":
			obj, ok := value.(map[string]any)
			if !ok {
				return translatedFilter{}, opErr(filterOp, OperationErrorValidation, "operator $not expects an object", nil)
			}
			sub, err := translateFilter(obj)
			if err != nil {
				return translatedFilter{}, err
			}
			if !sub.empty() {
				out.MustNot = append(out.MustNot, sub.asMap())
			}
		default:
			if strings.HasPrefix(k, "$") {
				return translatedFilter{}, opErr(filterOp, OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported operator %s", k), nil)
			}
			if err := translateField(&out, k, value); err != nil {
				return translatedFilter{}, err
			}
		}
	}
	return out, nil
}

func translateField(out *translatedFilter, field string, value any) error {
	switch v := value.(type) {
	case map[string]any:
		for op, arg := range v {
			switch strings.ToLower(op) {
			case "$eq":
				out.Must = append(out.Must, matchCondition(field, arg))
			case "$ne":
				out.MustNot = append(out.MustNot, matchCondition(field, arg))
			case "$in":
				list, ok := scalarSlice(arg)
				if !ok {
					return opErr(filterOp, OperationErrorValidation, fmt.Sprintf("field %s: $in expects an array", field), nil)
				}
				out.Must = append(out.Must, matchAnyCondition(field, list))
			default:
				return opErr(filterOp, OperationErrorUnsupportedFilter, fmt.Sprintf("field %s: unsupported operator %s", field, op), nil)
			}
		}
	case []any, []string:
		list, _ := scalarSlice(v)
		out.Must = append(out.Must, matchAnyCondition(field, list))
	default:
		out.Must = append(out.Must, matchCondition(field, v))
	}
	return nil
}

func matchCondition(field string, value any) map[string]any {
	return map[string]any{"key": field, "match": map[string]any{"value": value}}
}

func matchAnyCondition(field string, values []any) map[string]any {
	return map[string]any{"key": field, "match": map[string]any{"any": values}}
}

func objectSlice(v any) ([]map[string]any, bool) {
	switch t := v.(type) {
	case []map[string]any:
		return t, true
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}

func scalarSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
