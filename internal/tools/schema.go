package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// NewTool 反射 T 生成参数 schema，并把 handler 包装成接收原始 JSON 的 Handler。
// T 的字段通过 json tag 命名，未标记 omitempty 的字段为必填，
// jsonschema tag 可补充 description/default/enum。
func NewTool[T any](name, description string, handler func(ctx context.Context, input T) (Output, error)) Definition {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	required := make(map[string]bool, len(schema.Required))
	for _, field := range schema.Required {
		required[field] = true
	}
	var params []Param
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params = append(params, Param{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		})
	}

	generic := func(ctx context.Context, args json.RawMessage) (Output, error) {
		var input T
		if len(args) > 0 {
			if err := json.Unmarshal(args, &input); err != nil {
				return Output{}, &InvalidArgumentsError{Reason: err.Error()}
			}
		}
		return handler(ctx, input)
	}

	return Definition{
		Name:        name,
		Description: description,
		Params:      params,
		Schema:      parameterSchema(schema),
		Handler:     generic,
	}
}

// parameterSchema 把反射结果转换为纯 map，便于各 SDK 序列化。
func parameterSchema(schema *jsonschema.Schema) map[string]any {
	out := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
	if schema.Properties != nil {
		raw, err := json.Marshal(schema.Properties)
		if err != nil {
			panic(fmt.Sprintf("marshal tool schema: %v", err))
		}
		var props map[string]any
		if err := json.Unmarshal(raw, &props); err != nil {
			panic(fmt.Sprintf("unmarshal tool schema: %v", err))
		}
		out["properties"] = props
	}
	if len(schema.Required) > 0 {
		out["required"] = append([]string(nil), schema.Required...)
	}
	return out
}
