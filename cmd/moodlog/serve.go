package moodlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local journal over HTTP",
	Long:  "Serve exposes the journal as a JSON API so other devices can use it with --api-url.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Remote() {
			return errors.New("serve needs a local database; unset --api-url")
		}
		addr := cfg.Listen
		if serveListen != "" {
			addr = serveListen
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Config{Addr: addr, LogOutput: cmd.ErrOrStderr()}, s.local)
		fmt.Fprintf(out(cmd), "Serving %s on http://%s\n", cfg.DBPath, addr)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default from config, 127.0.0.1:5001)")
	rootCmd.AddCommand(serveCmd)
}
