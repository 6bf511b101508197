package moodlog

import (
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI (the default)",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// The UI owns the terminal, so diagnostics go to the debug log or nowhere.
	logger := log.New(io.Discard, "", 0)
	if cfg.DebugLog != "" {
		f, err := tea.LogToFile(cfg.DebugLog, "moodlog")
		if err != nil {
			return err
		}
		defer f.Close()
		logger = log.Default()
	}
	s.logger = logger

	opts := tui.Options{
		Journal:           s.journal,
		Flags:             s.flags,
		TrendDays:         s.trendDays,
		MinTagOccurrences: s.minTagOccurrences,
		Policy:            s.policy,
		Logger:            logger,
	}
	if s.local != nil {
		opts.Settings = s.local
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
