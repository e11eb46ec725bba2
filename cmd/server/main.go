// Command server is the plain HTTP entrypoint for the regression engine:
// no subcommands, just listen-and-serve against internal/api.Server,
// configured from internal/config.Load with no flags.
package main

import (
	"net/http"
	"os"

	"github.com/modelhub/mmm-engine/internal/api"
	"github.com/modelhub/mmm-engine/internal/config"
	"github.com/modelhub/mmm-engine/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Logger = logging.New(cfg.LogLevel, os.Stderr)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewServer(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	log.Info().Str("addr", cfg.ListenAddr).Msg("mmm-engine listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
