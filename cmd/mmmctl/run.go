package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelhub/mmm-engine/internal/api"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <request.json>",
	Short: "replay a JSON-encoded regression request from disk and print the sanitized response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading request file: %w", err)
		}

		var req api.RegressionRequestDTO
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("decoding request: %w", err)
		}

		resp, err := api.RunRegressionRequest(&req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}
