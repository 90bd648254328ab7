// Package cli implements workersctl, a shell front end for the workers API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/gateway/workers"
	"onfleet-workers-go/internal/logx"
)

type globals struct {
	baseURL    string
	apiKey     string
	outputJSON bool
	verbose    bool

	out    io.Writer
	errOut io.Writer
	newAPI func(workers.ClientConfig) (workers.API, error)
	api    workers.API
}

// NewRootCmd builds the workersctl command tree writing results to out and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	return newRootCmd(out, errOut, workers.New)
}

func newRootCmd(out, errOut io.Writer, newAPI func(workers.ClientConfig) (workers.API, error)) *cobra.Command {
	g := &globals{out: out, errOut: errOut, newAPI: newAPI}

	root := &cobra.Command{
		Use:           "workersctl",
		Short:         "Manage workers through the platform REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.connect(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&g.baseURL, "base-url", "", "API root (default $ONFLEET_BASE_URL or "+workers.DefaultBaseURL+")")
	pf.StringVar(&g.apiKey, "api-key", "", "API key (default $ONFLEET_API_KEY)")
	pf.BoolVar(&g.outputJSON, "json", false, "Output as JSON")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log requests and retries to stderr")

	root.AddCommand(
		newCreateCmd(g),
		newGetCmd(g),
		newListCmd(g),
		newNearCmd(g),
		newUpdateCmd(g),
		newDeleteCmd(g),
		newScheduleCmd(g),
		newInsertTasksCmd(g),
		newMatchMetadataCmd(g),
	)
	return root
}

// connect fills unset flags from the environment and builds the client stack.
func (g *globals) connect(cmd *cobra.Command) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("base-url") {
		g.baseURL = cfg.Client.BaseURL
	}
	if !cmd.Flags().Changed("api-key") {
		g.apiKey = cfg.Client.APIKey
	}
	if strings.TrimSpace(g.apiKey) == "" {
		return fmt.Errorf("api key is required: pass --api-key or set ONFLEET_API_KEY")
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := logx.NewSlogAdapter(slog.New(slog.NewTextHandler(g.errOut, &slog.HandlerOptions{Level: level})))

	g.api, err = g.newAPI(workers.ClientConfig{
		Options: workers.Options{
			BaseURL:   g.baseURL,
			APIKey:    g.apiKey,
			UserAgent: "workersctl",
			Timeout:   cfg.Client.Timeout,
			Logger:    logger,
		},
		Rate:  cfg.Client.Rate,
		Burst: cfg.Client.Burst,
		Retry: workers.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		Breaker: workers.BreakerConfig{
			Name:             "workersctl",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
	})
	return err
}

func (g *globals) printJSON(v any) error {
	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
