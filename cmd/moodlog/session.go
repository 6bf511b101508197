package moodlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/api"
	"github.com/sadopc/moodlog/internal/config"
	"github.com/sadopc/moodlog/internal/flags"
	"github.com/sadopc/moodlog/internal/goals"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

const (
	commandTimeout = 30 * time.Second
	healthTimeout  = 5 * time.Second
)

// session is an open journal plus the preferences that apply to it.
type session struct {
	journal store.Journal
	// local is nil when the journal is remote.
	local  *store.Store
	remote *api.Client
	flags  flags.Store
	logger *log.Logger

	trendDays         int
	minTagOccurrences int
	policy            stats.DuplicatePolicy
}

func openSession(cmd *cobra.Command) (*session, error) {
	s := &session{
		logger:            log.New(cmd.ErrOrStderr(), "moodlog: ", 0),
		trendDays:         cfg.TrendDays,
		minTagOccurrences: cfg.MinTagOccurrences,
		policy:            stats.ParseDuplicatePolicy(cfg.DuplicatePolicy),
	}

	if cfg.Remote() {
		s.remote = &api.Client{BaseURL: cfg.APIURL, Token: cfg.APIToken}
		ctx, cancel := commandContext(cmd, healthTimeout)
		defer cancel()
		if err := s.remote.Health(ctx); err != nil {
			return nil, fmt.Errorf("journal at %s is unreachable: %w", cfg.APIURL, err)
		}
		s.journal = s.remote
		s.flags = s.openFlags(nil)
		return s, nil
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s.local = db
	s.journal = db

	// The settings table wins over config for a local journal.
	s.trendDays = db.GetIntSetting(config.KeyTrendDays, s.trendDays)
	s.minTagOccurrences = db.GetIntSetting(config.KeyMinTagOccurrences, s.minTagOccurrences)
	if p, err := db.GetSetting(config.KeyDuplicatePolicy); err == nil {
		s.policy = stats.ParseDuplicatePolicy(p)
	}

	s.flags = s.openFlags(db)
	return s, nil
}

// openFlags picks where done-today markers live: the flags directory, or the
// local settings table when no directory is configured. Without either the
// markers are unavailable and goals fall back to what the journal reports.
func (s *session) openFlags(db *store.Store) flags.Store {
	if cfg.FlagsDir == "" {
		if db != nil {
			return flags.NewSettings(db)
		}
		return flags.Disabled{}
	}
	disk, err := flags.NewDisk(cfg.FlagsDir)
	if err != nil {
		s.logger.Printf("done-today markers disabled: %v", err)
		return flags.Disabled{}
	}
	return disk
}

func (s *session) Close() error {
	if s.local != nil {
		return s.local.Close()
	}
	return nil
}

func (s *session) reconciler() *goals.Reconciler {
	return goals.New(s.journal, s.flags, goals.WithLogger(s.logger))
}

// withSession opens the journal for the duration of run.
func withSession(cmd *cobra.Command, run func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd, commandTimeout)
	defer cancel()
	return run(ctx, s)
}

func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

var (
	bold    = color.New(color.Bold)
	faint   = color.New(color.Faint)
	success = color.New(color.FgGreen)
	notice  = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

// moodColors follow the mood scale from worst to best.
var moodColors = map[int]*color.Color{
	1: color.New(color.FgRed),
	2: color.New(color.FgYellow),
	3: color.New(color.FgHiYellow),
	4: color.New(color.FgCyan),
	5: color.New(color.FgGreen),
}

func moodColor(v int) *color.Color {
	if c, ok := moodColors[v]; ok {
		return c
	}
	return color.New()
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
