package main

import (
	"net/http"

	"github.com/modelhub/mmm-engine/internal/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		srv := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      api.NewServer(),
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		}
		log.Info().Str("addr", cfg.ListenAddr).Msg("mmm-engine listening")
		return srv.ListenAndServe()
	},
}
