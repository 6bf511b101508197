// Package server exposes a journal store over the REST API consumed by
// package api.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/sadopc/moodlog/internal/api"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

// Store is the persistence the server needs. *store.Store implements it.
type Store = store.Journal

type Config struct {
	Addr string
	// LogOutput receives request logs. Defaults to stdout.
	LogOutput io.Writer
	// Now is the server clock. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	app   *fiber.App
	store Store
	cfg   Config
}

func New(cfg Config, st Store) *Server {
	if cfg.LogOutput == nil {
		cfg.LogOutput = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:    api.RequestIDHeader,
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path} | ${respHeader:X-Request-ID}\n",
		Output: cfg.LogOutput,
	}))
	app.Use(cors.New())

	srv := &Server{app: app, store: st, cfg: cfg}
	srv.registerRoutes()
	return srv
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Handler adapts the app to net/http.
func (s *Server) Handler() http.Handler { return adaptor.FiberApp(s.app) }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	log.Printf("moodlog API listening on %s", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r := s.app.Group("/api")
	r.Get("/mood", s.handleListEntries)
	r.Post("/mood", s.handleCreateEntry)
	r.Get("/mood/statistics", s.handleStatistics)
	r.Put("/mood/:id", s.handleUpdateEntry)
	r.Patch("/mood/:id", s.handleUpdateEntry)
	r.Delete("/mood/:id", s.handleDeleteEntry)
	r.Get("/tags", s.handleListTags)
	r.Get("/goals", s.handleListGoals)
	r.Post("/goals", s.handleCreateGoal)
	r.Put("/goals/:id", s.handleUpdateGoal)
	r.Patch("/goals/:id", s.handleUpdateGoal)
	r.Delete("/goals/:id", s.handleDeleteGoal)
	r.Post("/goals/:id/progress", s.handleIncrement)
	r.Get("/goals/:id/completions", s.handleCompletions)
}

func (s *Server) handleListEntries(c *fiber.Ctx) error {
	entries, err := s.store.ListEntries(c.UserContext(), store.EntryFilter{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: c.QueryInt("limit", 0),
	})
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return c.JSON(entries)
}

func (s *Server) handleCreateEntry(c *fiber.Ctx) error {
	var in store.EntryInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	e, err := s.store.CreateEntry(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (s *Server) handleUpdateEntry(c *fiber.Ctx) error {
	id, err := pathID(c, "entry")
	if err != nil {
		return err
	}
	var in store.EntryUpdate
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	e, err := s.store.UpdateEntry(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (s *Server) handleDeleteEntry(c *fiber.Ctx) error {
	id, err := pathID(c, "entry")
	if err != nil {
		return err
	}
	if err := s.store.DeleteEntry(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListTags(c *fiber.Ctx) error {
	tags, err := s.store.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	return c.JSON(tags)
}

func (s *Server) handleStatistics(c *fiber.Ctx) error {
	entries, err := s.store.ListEntries(c.UserContext(), store.EntryFilter{})
	if err != nil {
		return err
	}
	o := stats.BuildOverview(entries, s.cfg.Now())

	var out api.Statistics
	out.Statistics.TotalEntries = o.TotalEntries
	out.Statistics.AverageMood = o.AverageMood
	out.CurrentStreak = o.CurrentStreak
	out.MoodDistribution = make(map[int]int, len(o.Distribution))
	for _, b := range o.Distribution {
		out.MoodDistribution[b.Level.Value] = b.Count
	}
	return c.JSON(out)
}

func (s *Server) handleListGoals(c *fiber.Ctx) error {
	goals, err := s.store.ListGoals(c.UserContext())
	if err != nil {
		return err
	}
	if goals == nil {
		goals = []store.Goal{}
	}
	return c.JSON(goals)
}

func (s *Server) handleCreateGoal(c *fiber.Ctx) error {
	var in store.GoalInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	g, err := s.store.CreateGoal(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (s *Server) handleUpdateGoal(c *fiber.Ctx) error {
	id, err := goalID(c)
	if err != nil {
		return err
	}
	var in store.GoalUpdate
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	g, err := s.store.UpdateGoal(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(g)
}

func (s *Server) handleDeleteGoal(c *fiber.Ctx) error {
	id, err := goalID(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGoal(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleIncrement(c *fiber.Ctx) error {
	id, err := goalID(c)
	if err != nil {
		return err
	}
	g, err := s.store.IncrementGoalProgress(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(g)
}

func (s *Server) handleCompletions(c *fiber.Ctx) error {
	id, err := goalID(c)
	if err != nil {
		return err
	}
	completions, err := s.store.ListGoalCompletions(c.UserContext(), id, c.Query("start"), c.Query("end"))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(completions))
	for _, cp := range completions {
		out = append(out, fiber.Map{"date": cp.Date})
	}
	return c.JSON(out)
}

func goalID(c *fiber.Ctx) (int64, error) {
	return pathID(c, "goal")
}

func pathID(c *fiber.Ctx, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

// errorHandler renders every error as {"error": "..."} with a status derived
// from the store's sentinel errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, store.ErrInvalid):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
