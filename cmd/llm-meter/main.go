package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/neubell/llm-meter/internal/config"
)

func main() {
	if os.Getenv("LLM_METER_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	root := cobra.Command{
		Use:   "llm-meter",
		Short: "llm-meter is a terminal dashboard for monitoring LLM API usage and spend.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\nConfig path: %s\n", err, config.Path())
				os.Exit(1)
			}
			return runDashboard(cfg)
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newInitCommand(),
		newAddProviderCommand(),
		newRefreshCommand(),
		newExportCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
