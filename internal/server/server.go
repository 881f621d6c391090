package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
	"relayforge/internal/usecase"
)

// Deps wires the operator API.
type Deps struct {
	Jobs      ports.JobStore
	Registry  ports.PublisherRegistry
	Operator  *usecase.Operator
	Scheduler *usecase.PostingScheduler
	Tracker   *usecase.Tracker
	Window    time.Duration
	Logger    *slog.Logger
}

// Server is the HTTP control surface of the pipeline: job inspection,
// manual interventions and the analytics read side.
type Server struct {
	app       *fiber.App
	jobs      ports.JobStore
	registry  ports.PublisherRegistry
	operator  *usecase.Operator
	scheduler *usecase.PostingScheduler
	tracker   *usecase.Tracker
	window    time.Duration
	logger    *slog.Logger
}

// New builds the fiber app and registers all routes.
func New(deps Deps) *Server {
	s := &Server{
		jobs:      deps.Jobs,
		registry:  deps.Registry,
		operator:  deps.Operator,
		scheduler: deps.Scheduler,
		tracker:   deps.Tracker,
		window:    deps.Window,
		logger:    deps.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "relayforge",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: s.errorHandler,
	})

	s.app.Get("/health", s.health)
	s.app.Get("/platforms", s.platforms)
	s.app.Get("/jobs", s.listJobs)
	s.app.Get("/jobs/:id", s.getJob)
	s.app.Post("/jobs/:id/approve", s.approveJob)
	s.app.Post("/jobs/:id/retry", s.retryJob)
	s.app.Post("/jobs/:id/distribute", s.distributeJob)
	s.app.Get("/jobs/:id/analytics", s.jobAnalytics)
	s.app.Get("/analytics/top", s.topContent)
	s.app.Get("/scheduled", s.listScheduled)
	s.app.Post("/scheduled/:job_id/cancel", s.cancelScheduled)
	s.app.Post("/scheduled/:job_id/reschedule", s.rescheduleScheduled)

	return s
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	var notReady usecase.ErrJobNotReady
	var fiberErr *fiber.Error

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, usecase.ErrScheduleNotFound):
		status = fiber.StatusNotFound
	case errors.As(err, &notReady):
		status = fiber.StatusConflict
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) platforms(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"platforms": s.registry.Platforms()})
}

func (s *Server) listJobs(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	jobs, err := s.jobs.List(c.Context(), limit)
	if err != nil {
		return err
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job))
	}
	return c.JSON(fiber.Map{"jobs": views})
}

func (s *Server) getJob(c fiber.Ctx) error {
	job, err := s.jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toJobDetail(job))
}

func (s *Server) approveJob(c fiber.Ctx) error {
	if err := s.operator.Approve(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "queued"})
}

func (s *Server) retryJob(c fiber.Ctx) error {
	if err := s.operator.Retry(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "retrying"})
}

func (s *Server) distributeJob(c fiber.Ctx) error {
	var req struct {
		Platforms []string `json:"platforms"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	status, err := s.operator.Distribute(c.Context(), c.Params("id"), req.Platforms)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": status})
}

func (s *Server) jobAnalytics(c fiber.Ctx) error {
	rollup, err := s.tracker.JobRollup(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rollup)
}

func (s *Server) topContent(c fiber.Ctx) error {
	window := s.window
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid window")
		}
		window = parsed
	}
	limit := queryInt(c, "limit", 10)

	ranked, err := s.tracker.TopContent(c.Context(), window, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"top": ranked})
}

func (s *Server) listScheduled(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	posts, err := s.scheduler.List(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"scheduled": posts})
}

func (s *Server) cancelScheduled(c fiber.Ctx) error {
	if err := s.scheduler.Cancel(c.Context(), c.Params("job_id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

func (s *Server) rescheduleScheduled(c fiber.Ctx) error {
	var req struct {
		ScheduledTime time.Time `json:"scheduled_time"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ScheduledTime.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "scheduled_time is required")
	}

	if err := s.scheduler.Reschedule(c.Context(), c.Params("job_id"), req.ScheduledTime); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "rescheduled"})
}

func queryInt(c fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
