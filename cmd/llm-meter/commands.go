package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/neubell/llm-meter/internal/config"
	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/credentials"
	"github.com/neubell/llm-meter/internal/meter"
	"github.com/neubell/llm-meter/internal/storage"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config and data directories with a default config file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.EnsureInitialized(); err != nil {
				return err
			}
			fmt.Printf("initialized %s\n", config.Dir())
			return nil
		},
	}
}

func newAddProviderCommand() *cobra.Command {
	var apiKey, baseURL, orgID string

	cmd := &cobra.Command{
		Use:   "add-provider <name>",
		Short: "Store a provider's API key and settings and enable it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			provider := core.NormalizeProviderName(args[0])
			if provider == "" {
				return fmt.Errorf("provider name is required")
			}
			if err := config.EnsureInitialized(); err != nil {
				return err
			}

			if apiKey != "" {
				creds := credentials.NewStore(credentials.DefaultPath(config.Dir()))
				if err := creds.Set(provider, apiKey); err != nil {
					return err
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.SetProvider(provider, true, core.ProviderSettings{
				BaseURL:        baseURL,
				OrganizationID: orgID,
			})
			if err := config.Save(cfg); err != nil {
				return err
			}

			fmt.Printf("%s configured and enabled\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store (falls back to "+credentials.EnvVar("<name>")+" style env vars when omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "override the provider's API base URL")
	cmd.Flags().StringVar(&orgID, "organization-id", "", "organization ID header value")
	return cmd
}

func newRefreshCommand() *cobra.Command {
	var windowFlag string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch usage for all enabled providers and update the local store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := parseWindowFlag(windowFlag)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.EnsureInitialized(); err != nil {
				return err
			}

			store, err := storage.Open(config.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			creds := credentials.NewStore(credentials.DefaultPath(config.Dir()))
			snap, err := meter.New().Refresh(cmd.Context(), cfg, creds, window, store)
			if err != nil {
				return err
			}

			fmt.Printf("fetched %d usage rows, %d cost rows (%s window)\n",
				len(snap.Usage), len(snap.Cost), window.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&windowFlag, "window", "7d", "refresh window: 1d, 7d, or 30d")
	return cmd
}

// parseWindowFlag rejects unknown windows instead of silently defaulting.
func parseWindowFlag(s string) (core.TimeWindow, error) {
	switch core.TimeWindow(s) {
	case core.TimeWindow1d, core.TimeWindow7d, core.TimeWindow30d:
		return core.TimeWindow(s), nil
	default:
		return "", fmt.Errorf("invalid window %q: expected 1d, 7d, or 30d", s)
	}
}

func newExportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all cost records to stdout, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storage.Open(config.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ExportAllCost(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return exportJSON(os.Stdout, records)
			case "csv":
				return exportCSV(os.Stdout, records)
			default:
				return fmt.Errorf("invalid format %q: expected json or csv", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or csv")
	return cmd
}

func exportJSON(w io.Writer, records []core.CostRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func exportCSV(w io.Writer, records []core.CostRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"provider", "model", "input_cost", "output_cost", "total_cost", "currency", "timestamp"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Provider,
			r.Model,
			strconv.FormatFloat(r.InputCost, 'f', -1, 64),
			strconv.FormatFloat(r.OutputCost, 'f', -1, 64),
			strconv.FormatFloat(r.TotalCost, 'f', -1, 64),
			r.Currency,
			r.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
