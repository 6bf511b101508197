package moodlog

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/config"
)

// cfg is resolved before every command from flags, MOODLOG_* variables and
// .moodlog.yaml, in that order of precedence.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "moodlog",
	Short: "moodlog is a mood journal with trends, tag insights and weekly goals",
	Long: "moodlog records how you feel each day and turns the journal into trends, a mood\n" +
		"calendar and tag correlations. Run it without a command to open the terminal UI.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New()
		pf := cmd.Root().PersistentFlags()
		for key, flag := range map[string]string{
			config.KeyDB:       "db",
			config.KeyAPIURL:   "api-url",
			config.KeyFlagsDir: "flags-dir",
		} {
			if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
				return err
			}
		}
		var err error
		cfg, err = config.Load(v)
		return err
	},
	RunE: runTUI,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database")
	pf.String("api-url", "", "Base URL of a moodlog server to use instead of the local database")
	pf.String("flags-dir", "", "Directory for done-today markers (empty keeps them in the database)")
}
