package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Validate 按参数表检查模型给出的 JSON 参数：必须是 object，
// 必填字段存在且非 null，类型匹配，不允许未声明字段。
func Validate(params []Param, args json.RawMessage) error {
	values, err := decodeArgs(args)
	if err != nil {
		return err
	}

	declared := make(map[string]Param, len(params))
	for _, p := range params {
		declared[p.Name] = p
		value, ok := values[p.Name]
		if p.Required && (!ok || value == nil) {
			return &InvalidArgumentsError{Field: p.Name, Reason: "missing required field"}
		}
	}

	for key, value := range values {
		p, ok := declared[key]
		if !ok {
			return &InvalidArgumentsError{Field: key, Reason: "unknown field"}
		}
		if value == nil && !p.Required {
			continue
		}
		if err := validateType(value, p.Type); err != nil {
			return &InvalidArgumentsError{Field: key, Reason: err.Error()}
		}
	}
	return nil
}

func decodeArgs(args json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, &InvalidArgumentsError{Reason: "arguments are not valid JSON: " + err.Error()}
	}
	values, ok := decoded.(map[string]any)
	if !ok {
		return nil, &InvalidArgumentsError{Reason: fmt.Sprintf("arguments must be a JSON object, got %s", jsonKind(decoded))}
	}
	return values, nil
}

func validateType(value any, expected string) error {
	switch strings.TrimSpace(expected) {
	case "":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if n, ok := value.(json.Number); ok {
			if _, err := n.Float64(); err == nil {
				return nil
			}
		}
	case "integer":
		if n, ok := value.(json.Number); ok {
			if f, err := n.Float64(); err == nil && math.Trunc(f) == f {
				return nil
			}
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %s", expected, jsonKind(value))
}

func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
