package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finsight/internal/events"
	"finsight/internal/logger"
)

// State 是 agent 循环的状态机状态。
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTools
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultMaxIterations   = 8
	DefaultRequestTimeout  = 120 * time.Second
	DefaultToolTimeout     = 30 * time.Second
	DefaultRetries         = 2
	DefaultRetryInterval   = 500 * time.Millisecond
	DefaultToolConcurrency = 4
)

// Options 配置 Loop。零值字段使用上面的默认值；Retries 为负数表示不重试。
type Options struct {
	Client          ModelClient
	Tools           Toolbox
	Model           string
	Instruction     string
	Temperature     float64
	MaxTokens       int64
	MaxIterations   int
	RequestTimeout  time.Duration
	ToolTimeout     time.Duration
	Retries         int
	RetryInterval   time.Duration
	ToolConcurrency int
	Events          events.Publisher
	Metrics         *Metrics
}

// Result 是一次成功运行的产物。NewMessages 只包含本轮新增的 assistant/tool 消息。
type Result struct {
	RunID       string
	NewMessages []Message
	FinalAnswer string
	Sources     []string
	Iterations  int
}

// Loop 驱动 "模型调用 -> 工具执行 -> 模型调用" 的循环直到模型给出最终答复。
// Loop 本身不持有跨运行的可变状态，可被多个会话并发调用。
type Loop struct {
	client          ModelClient
	tools           Toolbox
	model           string
	instruction     string
	temperature     float64
	maxTokens       int64
	maxIterations   int
	requestTimeout  time.Duration
	toolTimeout     time.Duration
	retries         int
	retryInterval   time.Duration
	toolConcurrency int
	events          events.Publisher
	metrics         *Metrics
}

// NewLoop 校验配置并冻结工具注册表。
func NewLoop(opts Options) (*Loop, error) {
	if opts.Client == nil {
		return nil, errors.New("agent: model client is required")
	}
	if opts.Tools == nil {
		return nil, errors.New("agent: toolbox is required")
	}
	l := &Loop{
		client:          opts.Client,
		tools:           opts.Tools,
		model:           opts.Model,
		instruction:     opts.Instruction,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		maxIterations:   opts.MaxIterations,
		requestTimeout:  opts.RequestTimeout,
		toolTimeout:     opts.ToolTimeout,
		retries:         opts.Retries,
		retryInterval:   opts.RetryInterval,
		toolConcurrency: opts.ToolConcurrency,
		events:          opts.Events,
		metrics:         opts.Metrics,
	}
	if l.instruction == "" {
		l.instruction = DefaultInstruction
	}
	if l.maxIterations <= 0 {
		l.maxIterations = DefaultMaxIterations
	}
	if l.requestTimeout <= 0 {
		l.requestTimeout = DefaultRequestTimeout
	}
	if l.toolTimeout <= 0 {
		l.toolTimeout = DefaultToolTimeout
	}
	if l.retries < 0 {
		l.retries = 0
	}
	if l.retryInterval <= 0 {
		l.retryInterval = DefaultRetryInterval
	}
	if l.toolConcurrency <= 0 {
		l.toolConcurrency = DefaultToolConcurrency
	}
	if f, ok := opts.Tools.(freezer); ok {
		f.Freeze()
	}
	return l, nil
}

// run 保存单次运行的局部状态。
type run struct {
	id         string
	history    []Message
	added      []Message
	iterations int
	callIDs    map[string]bool
}

func newRun(history []Message) *run {
	r := &run{id: uuid.NewString(), history: CloneMessages(history), callIDs: make(map[string]bool)}
	for _, msg := range r.history {
		for _, call := range msg.ToolCalls {
			r.callIDs[call.ID] = true
		}
	}
	return r
}

func (r *run) transcript() []Message {
	out := make([]Message, 0, len(r.history)+len(r.added))
	out = append(out, r.history...)
	return append(out, r.added...)
}

// Run 以调用方历史为起点执行一轮循环。history 不会被修改。
func (l *Loop) Run(ctx context.Context, history []Message) (Result, error) {
	r := newRun(history)
	state := StateAwaitingModel
	var pending Message

	for {
		switch state {
		case StateAwaitingModel:
			if r.iterations >= l.maxIterations {
				err := &MaxIterationsExceededError{Limit: l.maxIterations, Partial: CloneMessages(r.added)}
				l.fail(r, "max_iterations", err)
				return Result{}, err
			}
			if err := ctx.Err(); err != nil {
				l.fail(r, "canceled", err)
				return Result{}, fmt.Errorf("agent run canceled: %w", err)
			}
			r.iterations++
			msg, err := l.invokeModel(ctx, r)
			if err != nil {
				l.fail(r, "model_error", err)
				return Result{}, err
			}
			r.added = append(r.added, msg)
			if msg.HasToolCalls() {
				pending = msg
				state = StateExecutingTools
				continue
			}
			state = StateDone

		case StateExecutingTools:
			r.added = append(r.added, l.executeTools(ctx, r, pending.ToolCalls)...)
			pending = Message{}
			state = StateAwaitingModel

		case StateDone:
			final := r.added[len(r.added)-1]
			res := Result{
				RunID:       r.id,
				NewMessages: CloneMessages(r.added),
				FinalAnswer: final.Content,
				Sources:     collectSources(r.added),
				Iterations:  r.iterations,
			}
			l.metrics.observeRun("answered", r.iterations)
			l.publish(events.Event{Type: events.EventLoopDone, RunID: r.id, Iteration: r.iterations, Detail: logger.Preview(final.Content, 120)})
			log.Infof("run=%s done iterations=%d new_messages=%d sources=%d", r.id, r.iterations, len(res.NewMessages), len(res.Sources))
			return res, nil
		}
	}
}

func (l *Loop) invokeModel(ctx context.Context, r *run) (Message, error) {
	req := Request{
		Model:       l.model,
		System:      l.instruction,
		Messages:    r.transcript(),
		Tools:       l.tools.Specs(),
		Temperature: l.temperature,
		MaxTokens:   l.maxTokens,
	}
	l.publish(events.Event{Type: events.EventModelRequested, RunID: r.id, Iteration: r.iterations})

	attempts := 0
	start := time.Now()
	operation := func() (Message, error) {
		attempts++
		logger.LLMRequest(l.model, ToLLMMessages(req.Messages), attempts)
		callCtx, cancel := context.WithTimeout(ctx, l.requestTimeout)
		defer cancel()
		msg, err := l.client.Complete(callCtx, req)
		if err != nil {
			l.metrics.observeModelError()
			logger.LLMError(l.model, err, attempts)
			if ctx.Err() != nil {
				return Message{}, backoff.Permanent(err)
			}
			return Message{}, err
		}
		logger.LLMResponse(l.model, msg.Content, len(msg.ToolCalls), attempts)
		return msg, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.retryInterval
	msg, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(l.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warnf("run=%s model=%s attempt=%d failed, retrying in %s: %v", r.id, l.model, attempts, next, err)
		}),
	)
	if err != nil {
		return Message{}, &ModelInvocationError{
			Model:    l.model,
			Attempts: attempts,
			Partial:  CloneMessages(r.added),
			Err:      err,
		}
	}

	msg.Role = RoleAssistant
	msg.ToolCallID = ""
	msg.ToolCalls = repairCallIDs(msg.ToolCalls, r.callIDs)
	l.publish(events.Event{
		Type:      events.EventModelResponded,
		RunID:     r.id,
		Iteration: r.iterations,
		Detail:    fmt.Sprintf("tool_calls=%d", len(msg.ToolCalls)),
		Duration:  time.Since(start),
	})
	log.Infof("run=%s iteration=%d model=%s tool_calls=%d content=%s", r.id, r.iterations, l.model, len(msg.ToolCalls), logger.Sanitize(logger.Preview(msg.Content, 200)))
	return msg, nil
}

// executeTools 并发执行同一 assistant 回合的全部工具调用，结果按请求顺序返回。
func (l *Loop) executeTools(ctx context.Context, r *run, calls []ToolCall) []Message {
	results := make([]Message, len(calls))
	var g errgroup.Group
	g.SetLimit(l.toolConcurrency)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = l.executeTool(ctx, r, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (l *Loop) executeTool(ctx context.Context, r *run, call ToolCall) Message {
	l.publish(events.Event{Type: events.EventToolStarted, RunID: r.id, Iteration: r.iterations, Tool: call.Name, ToolCallID: call.ID})
	start := time.Now()

	toolCtx, cancel := context.WithTimeout(ctx, l.toolTimeout)
	defer cancel()
	outcome := l.tools.Execute(toolCtx, call)

	status := "ok"
	if outcome.IsError {
		status = "error"
	}
	l.metrics.observeTool(call.Name, outcome.IsError)
	l.publish(events.Event{
		Type:       events.EventToolCompleted,
		RunID:      r.id,
		Iteration:  r.iterations,
		Tool:       call.Name,
		ToolCallID: call.ID,
		Status:     status,
		Detail:     outcome.Kind,
		Duration:   time.Since(start),
	})
	return Message{
		Role:       RoleTool,
		Content:    outcome.Content,
		ToolCallID: call.ID,
		IsError:    outcome.IsError,
		Sources:    append([]string(nil), outcome.Sources...),
	}
}

func (l *Loop) fail(r *run, outcome string, err error) {
	l.metrics.observeRun(outcome, r.iterations)
	l.publish(events.Event{Type: events.EventLoopFailed, RunID: r.id, Iteration: r.iterations, Status: outcome, Detail: err.Error()})
	log.Warnf("run=%s failed outcome=%s iterations=%d err=%v", r.id, outcome, r.iterations, err)
}

func (l *Loop) publish(evt events.Event) {
	if l.events == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	l.events.Publish(evt)
}

// repairCallIDs 为空或已用过的调用 id 生成新值。seen 覆盖整段会话（历史与本轮之前的
// 迭代），id 在会话内唯一，事件与日志里的 call id 才能对应到唯一一次调用。
func repairCallIDs(calls []ToolCall, seen map[string]bool) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, call := range calls {
		if call.ID == "" || seen[call.ID] {
			repaired := "call_" + uuid.NewString()
			log.Warnf("tool call %q has missing or duplicate id %q, using %s", call.Name, call.ID, repaired)
			call.ID = repaired
		}
		seen[call.ID] = true
		out[i] = call
	}
	return out
}

func collectSources(msgs []Message) []string {
	var out []string
	seen := make(map[string]bool)
	for _, msg := range msgs {
		if msg.Role != RoleTool {
			continue
		}
		for _, src := range msg.Sources {
			if seen[src] {
				continue
			}
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}
