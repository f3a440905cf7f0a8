package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"finsight/internal/agent"
	"finsight/internal/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logger.Named("server")

// Runner 执行一轮 agent 循环，*agent.Loop 实现了它。
type Runner interface {
	Run(ctx context.Context, history []agent.Message) (agent.Result, error)
}

type Options struct {
	Runner Runner
	// Gatherer 为空时 /metrics 不注册。
	Gatherer prometheus.Gatherer
	// RunTimeout 限制单次 /api/chat 的总时长，0 表示不限制。
	RunTimeout time.Duration
	Version    string
}

// Server 暴露 HTTP 聊天接口。会话历史由客户端持有并随请求提交。
type Server struct {
	runner     Runner
	runTimeout time.Duration
	version    string
	echo       *echo.Echo
}

// ChatRequest 携带客户端持有的历史与本轮提问。
type ChatRequest struct {
	History []agent.Message `json:"history"`
	Message string          `json:"message"`
}

// ChatResponse 的 NewMessages 以本轮用户消息开头，客户端直接追加到历史即可。
type ChatResponse struct {
	RunID       string          `json:"run_id"`
	NewMessages []agent.Message `json:"new_messages"`
	Answer      string          `json:"answer"`
	Sources     []string        `json:"sources,omitempty"`
	Iterations  int             `json:"iterations"`
}

// ErrorResponse 与正常答复的结构不同，调用方据此区分失败。
type ErrorResponse struct {
	Error   string          `json:"error"`
	Kind    string          `json:"kind,omitempty"`
	Partial []agent.Message `json:"partial,omitempty"`
}

func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	s := &Server{
		runner:     opts.Runner,
		runTimeout: opts.RunTimeout,
		version:    opts.Version,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithField("status", v.Status).WithField("latency_ms", v.Latency.Milliseconds())
			if v.Error != nil {
				entry = entry.WithField("error", logger.Sanitize(v.Error.Error()))
			}
			entry.Infof("%s %s", v.Method, v.URI)
			return nil
		},
	}))

	e.GET("/api/health", s.Health)
	e.POST("/api/chat", s.Chat)
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	s.echo = e
	return s, nil
}

// Handler 返回底层 http.Handler，便于测试与嵌入。
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start(addr string) error {
	log.Infof("listening on %s", addr)
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health
// GET /api/health
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// Chat 运行一轮对话。
// POST /api/chat
func (s *Server) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}
	if err := agent.ValidateHistory(req.History); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid history: " + err.Error()})
	}

	ctx := c.Request().Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	user := agent.Message{Role: agent.RoleUser, Content: message}
	history := append(agent.CloneMessages(req.History), user)
	res, err := s.runner.Run(ctx, history)
	if err != nil {
		if agent.IsFatal(err) {
			log.Warnf("chat run failed: %v", err)
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   err.Error(),
				Kind:    agent.ErrorKind(err),
				Partial: agent.PartialTranscript(err),
			})
		}
		log.Warnf("chat run aborted: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: agent.ErrorKind(err)})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		RunID:       res.RunID,
		NewMessages: append([]agent.Message{user}, res.NewMessages...),
		Answer:      res.FinalAnswer,
		Sources:     res.Sources,
		Iterations:  res.Iterations,
	})
}
