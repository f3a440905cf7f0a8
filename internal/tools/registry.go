package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"finsight/internal/agent"
)

// Registry 是按名称索引的封闭工具表。
// 构造期注册，Freeze 之后只读；Execute 可被并发调用。
type Registry struct {
	mu     sync.RWMutex
	order  []string
	defs   map[string]Definition
	frozen bool
}

var _ agent.Toolbox = (*Registry)(nil)

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 添加工具定义。重名返回 *DuplicateToolError，冻结后返回 ErrRegistryFrozen。
func (r *Registry) Register(def Definition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errors.New("tool name is empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	def.Name = name
	def.Params = append([]Param(nil), def.Params...)
	if def.Schema == nil {
		def.Schema = schemaFromParams(def.Params)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.defs[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.defs[name] = def
	r.order = append(r.order, name)
	return nil
}

// Resolve 按名称查找工具，不存在时返回 *UnknownToolError。
func (r *Registry) Resolve(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, &UnknownToolError{Name: name}
	}
	def.Params = append([]Param(nil), def.Params...)
	return def, nil
}

func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Names 按注册顺序返回工具名。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Specs 按注册顺序返回发送给模型的工具描述。
func (r *Registry) Specs() []agent.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]agent.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.defs[name].Spec())
	}
	return specs
}

// Execute 实现 agent.Toolbox。
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall) agent.ToolOutcome {
	return r.Run(ctx, call).Outcome()
}

// Run 解析、校验并执行一次调用。未知工具、参数错误、handler 失败与超时
// 都折叠成 IsError 结果，不会以 Go error 形式返回。
func (r *Registry) Run(ctx context.Context, call agent.ToolCall) Result {
	start := time.Now()
	res := Result{CallID: call.ID, Tool: call.Name}

	out, err := r.run(ctx, call)
	res.Duration = time.Since(start)
	if err != nil {
		res.IsError = true
		res.Kind = Kind(err)
		res.Content = fmt.Sprintf("Error (%s): %v", res.Kind, err)
	} else {
		res.Content = out.Content
		res.Sources = append([]string(nil), out.Sources...)
	}
	logResult(res, string(call.Arguments))
	return res
}

func (r *Registry) run(ctx context.Context, call agent.ToolCall) (Output, error) {
	def, err := r.Resolve(call.Name)
	if err != nil {
		return Output{}, err
	}
	if err := Validate(def.Params, call.Arguments); err != nil {
		return Output{}, withTool(err, def.Name)
	}

	type outcome struct {
		out Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		out, err := def.Handler(ctx, call.Arguments)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			var invalid *InvalidArgumentsError
			if errors.As(o.err, &invalid) {
				return Output{}, withTool(o.err, def.Name)
			}
			return Output{}, &ToolExecutionError{Tool: def.Name, Err: o.err}
		}
		return o.out, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Output{}, &ToolExecutionError{Tool: def.Name, Err: errors.New("timed out")}
		}
		return Output{}, &ToolExecutionError{Tool: def.Name, Err: ctx.Err()}
	}
}

func withTool(err error, tool string) error {
	var invalid *InvalidArgumentsError
	if errors.As(err, &invalid) && invalid.Tool == "" {
		copied := *invalid
		copied.Tool = tool
		return &copied
	}
	return err
}

// schemaFromParams 为手写参数表的定义生成最小 JSON schema。
func schemaFromParams(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]any{}
		if p.Type != "" {
			prop["type"] = p.Type
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
