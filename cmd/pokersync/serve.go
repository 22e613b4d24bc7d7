package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cardtable/pokersync/internal/config"
	"github.com/cardtable/pokersync/internal/server"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development session server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := make(chan *server.ServerState, 1)
			go func() {
				if state, ok := <-started; ok {
					pterm.Success.Printfln("Session server listening on ws://%s%s/{session}/{token}", state.Address, server.SessionPath)
				}
			}()
			return server.Run(ctx, addr, cfg.Server.Seats, started)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default server.listen)")
	return cmd
}
