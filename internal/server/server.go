// Package server exposes snapshot history, progress reports and photo
// analysis over HTTP.
package server

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/archive"
	"github.com/dudu/hairline/internal/enhancer"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/progress"
)

// RequestIDKey is the request ID header and locals key
const RequestIDKey = "X-Request-ID"

// Analyzer runs the analysis pipeline and records the snapshot
type Analyzer interface {
	AnalyzeAndRecord(ctx context.Context, img gocv.Mat, rec pipeline.Recorder, subjectID, timestamp string) (*pipeline.Result, error)
}

var _ Analyzer = (*pipeline.Pipeline)(nil)

// Options wires the server dependencies. Analyzer, Enhancer and Archive are
// optional: without an analyzer the analysis route answers 503, without an
// enhancer uploads skip the quality check, without an archive results are
// not written to disk.
type Options struct {
	Tracker     *progress.Tracker
	Analyzer    Analyzer
	Enhancer    *enhancer.Enhancer
	Archive     *archive.Archive
	Log         logrus.FieldLogger
	BodyLimitMB int
	Timeout     time.Duration
}

// Server is the HTTP API
type Server struct {
	app       *fiber.App
	tracker   *progress.Tracker
	analyzer  Analyzer
	enhancer  *enhancer.Enhancer
	archive   *archive.Archive
	validator *validator.Validate
	log       logrus.FieldLogger
	timeout   time.Duration
}

// New creates the server and registers its routes
func New(opts Options) (*Server, error) {
	bodyLimit := opts.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 20
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}

	// Params and form values are kept as map keys in the stores, so they
	// must not alias fasthttp's reused request buffers.
	app := fiber.New(fiber.Config{
		Immutable:             true,
		AppName:               "hairline",
		BodyLimit:             bodyLimit * 1024 * 1024,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	s := &Server{
		app:       app,
		tracker:   opts.Tracker,
		analyzer:  opts.Analyzer,
		enhancer:  opts.Enhancer,
		archive:   opts.Archive,
		validator: validate,
		log:       logger.OrDiscard(opts.Log),
		timeout:   timeout,
	}

	app.Use(requestID())
	app.Use(s.accessLog())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.Health)

	v1 := s.app.Group("/api/v1")
	v1.Get("/subjects", s.ListSubjects)
	v1.Get("/subjects/:subject/snapshots", s.ListSnapshots)
	v1.Get("/subjects/:subject/report", s.GetReport)
	v1.Post("/subjects/:subject/analyses", s.CreateAnalysis)
}

// App returns the fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("http server listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(RequestIDKey, id)
		c.Set(RequestIDKey, id)
		return c.Next()
	}
}

func getRequestID(c *fiber.Ctx) string {
	id, ok := c.Locals(RequestIDKey).(string)
	if !ok || id == "" {
		return "unknown"
	}
	return id
}

func (s *Server) accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		entry := s.log.WithFields(logrus.Fields{
			"request_id": getRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		})

		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}
		return err
	}
}
