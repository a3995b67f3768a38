package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JSONUtil parses, validates, pretty-prints, and extracts values from JSON
// documents so the model does not have to manipulate raw JSON in text.
type JSONUtil struct{}

// NewJSONUtil creates the JSON utility tool.
func NewJSONUtil() *JSONUtil { return &JSONUtil{} }

func (j *JSONUtil) Name() string { return "json_util" }

func (j *JSONUtil) Description() string {
	return "Work with JSON documents: operations parse, validate, format, extract (with a dot path like items[0].name)"
}

func (j *JSONUtil) Validate(params map[string]any) error {
	op := cfgString(params, "operation")
	switch op {
	case "parse", "validate", "format", "extract":
	case "":
		return fmt.Errorf("operation is required")
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
	if cfgString(params, "data") == "" {
		return fmt.Errorf("data is required")
	}
	if op == "extract" && cfgString(params, "path") == "" {
		return fmt.Errorf("path is required for extract")
	}
	return nil
}

func (j *JSONUtil) Execute(_ context.Context, params, _ map[string]any) (any, error) {
	data := cfgString(params, "data")

	var parsed any
	parseErr := json.Unmarshal([]byte(data), &parsed)

	switch cfgString(params, "operation") {
	case "validate":
		result := map[string]any{"valid": parseErr == nil}
		if parseErr != nil {
			result["error"] = parseErr.Error()
		}
		return result, nil
	case "parse":
		if parseErr != nil {
			return nil, fmt.Errorf("invalid JSON: %w", parseErr)
		}
		return parsed, nil
	case "format":
		if parseErr != nil {
			return nil, fmt.Errorf("invalid JSON: %w", parseErr)
		}
		pretty, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return nil, err
		}
		return string(pretty), nil
	case "extract":
		if parseErr != nil {
			return nil, fmt.Errorf("invalid JSON: %w", parseErr)
		}
		value, err := extractPath(parsed, cfgString(params, "path"))
		if err != nil {
			return nil, err
		}
		return value, nil
	}
	return nil, fmt.Errorf("unknown operation")
}

// extractPath walks a dot path with optional [index] segments, e.g.
// "items[0].name" or "result.users[2]".
func extractPath(doc any, path string) (any, error) {
	current := doc
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		key := segment
		var indexes []int
		for {
			open := strings.Index(key, "[")
			if open < 0 {
				break
			}
			close := strings.Index(key, "]")
			if close < open {
				return nil, fmt.Errorf("malformed path segment %q", segment)
			}
			idx, err := strconv.Atoi(key[open+1 : close])
			if err != nil {
				return nil, fmt.Errorf("malformed index in %q", segment)
			}
			indexes = append(indexes, idx)
			key = key[:open] + key[close+1:]
		}

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an object", path, key)
			}
			value, ok := obj[key]
			if !ok {
				return nil, fmt.Errorf("path %q: key %q not found", path, key)
			}
			current = value
		}

		for _, idx := range indexes {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("path %q: not an array at index %d", path, idx)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("path %q: index %d out of range", path, idx)
			}
			current = arr[idx]
		}
	}
	return current, nil
}
