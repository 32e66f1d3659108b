package main

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/archscope/pkg/logging"
)

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	a.enablePublisher()

	logging.Info("starting server", "port", a.cfg.Port, "db", a.cfg.DB)
	return <-a.serveAsync(cmd.Context(), a.cfg.Port)
}
