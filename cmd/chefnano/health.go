package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/pkg/healthcheck"
)

type healthOptions struct {
	url        string
	format     string
	verbose    bool
	allowDeg   bool
	retries    int
	retryDelay time.Duration
}

// newHealthCommand checks a running server, for container health checks
// and scripts. The exit status is non-zero unless the server is healthy.
func newHealthCommand(opts *cliOptions) *cobra.Command {
	hopts := &healthOptions{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the health of a running kitchen server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hopts.url == "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				hopts.url = healthURL(cfg)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			resp, err := fetchHealthWithRetry(ctx, hopts)
			if err != nil {
				return err
			}
			if err := writeHealth(cmd.OutOrStdout(), resp, hopts); err != nil {
				return err
			}
			return healthVerdict(resp.Status, hopts.allowDeg)
		},
	}

	cmd.Flags().StringVar(&hopts.url, "url", "", "Health endpoint (default: derived from the config)")
	cmd.Flags().StringVar(&hopts.format, "format", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&hopts.verbose, "verbose", "v", false, "List every check")
	cmd.Flags().BoolVar(&hopts.allowDeg, "allow-degraded", false, "Treat a degraded server as passing")
	cmd.Flags().IntVar(&hopts.retries, "retry", 0, "Number of retries on connection failure")
	cmd.Flags().DurationVar(&hopts.retryDelay, "retry-delay", time.Second, "Delay between retries")
	return cmd
}

func healthURL(cfg *config.Config) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + cfg.Monitoring.HealthCheckPath
}

func fetchHealthWithRetry(ctx context.Context, opts *healthOptions) (*healthcheck.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.retryDelay):
			}
		}

		resp, err := fetchHealth(ctx, opts.url)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("health check failed after %d attempts: %w", opts.retries+1, lastErr)
}

func fetchHealth(ctx context.Context, url string) (*healthcheck.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body healthcheck.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode health response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &body, nil
}

func writeHealth(out io.Writer, resp *healthcheck.Response, opts *healthOptions) error {
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(out, "Status: %s\n", colorStatus(resp.Status))
	fmt.Fprintf(out, "Version: %s\n", resp.Version)
	if !opts.verbose {
		return nil
	}
	for _, check := range resp.Checks {
		fmt.Fprintf(out, "  %s: %s", check.Name, colorStatus(check.Status))
		if check.Message != "" {
			fmt.Fprintf(out, " (%s)", check.Message)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func colorStatus(s healthcheck.Status) string {
	switch s {
	case healthcheck.StatusHealthy:
		return green(string(s))
	case healthcheck.StatusDegraded:
		return bold(string(s))
	default:
		return red(string(s))
	}
}

func healthVerdict(status healthcheck.Status, allowDegraded bool) error {
	switch {
	case status == healthcheck.StatusHealthy:
		return nil
	case status == healthcheck.StatusDegraded && allowDegraded:
		return nil
	default:
		return fmt.Errorf("server is %s", status)
	}
}
