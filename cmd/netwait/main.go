// Command netwait blocks until TCP or HTTP(S) targets become reachable.
// It is the CLI front end of the wait engine and also hosts the MCP server
// via the serve subcommand.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/isitobservable/netwait/pkg/config"
	mcpserver "github.com/isitobservable/netwait/pkg/mcp"
	"github.com/isitobservable/netwait/pkg/output"
	"github.com/isitobservable/netwait/pkg/policy"
	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/telemetry"
	"github.com/isitobservable/netwait/pkg/tools"
	"github.com/isitobservable/netwait/pkg/types"
	"github.com/isitobservable/netwait/pkg/wait"
)

type cliOptions struct {
	timeout           string
	interval          string
	maxInterval       string
	connectionTimeout string
	expectStatus      int
	waitForAny        bool
	waitForAll        bool
	retryLimit        int
	headers           []string
	securityPreset    string
	rateLimit         int
	quiet             bool
	verbose           bool
	json              bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)

	exitCode := output.ExitSuccess
	root := newRootCmd(cfg, &exitCode)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		// Cobra already printed the usage error.
		return output.ExitUsage
	}
	return exitCode
}

func newRootCmd(cfg *config.Config, exitCode *int) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "netwait TARGET... [flags] [-- COMMAND...]",
		Short:         "Block until host:port or HTTP(S) endpoints are reachable; exit non-zero on timeout",
		Long:          "netwait probes TCP host:port and HTTP(S) targets with exponential backoff until they become reachable, the timeout passes, or it is interrupted. A command after -- runs once all targets are ready.",
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, command := splitArgs(cmd, args)
			if len(targets) == 0 {
				return errors.New("at least one target must be specified")
			}
			cmd.SilenceUsage = true
			*exitCode = runWait(cmd.Context(), cfg, opts, targets, command)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.timeout, "timeout", "t", cfg.Timeout.String(), "overall timeout (e.g. \"30s\", \"2m\", \"1h\")")
	flags.StringVarP(&opts.interval, "interval", "i", cfg.Interval.String(), "initial retry interval (e.g. \"1s\", \"500ms\")")
	flags.StringVar(&opts.maxInterval, "max-interval", cfg.MaxInterval.String(), "maximum retry interval for exponential backoff")
	flags.StringVar(&opts.connectionTimeout, "connection-timeout", cfg.ConnectionTimeout.String(), "timeout for individual connection attempts")
	flags.IntVar(&opts.expectStatus, "expect-status", 200, "expected HTTP status code for HTTP targets")
	flags.BoolVar(&opts.waitForAny, "any", false, "succeed when any target is ready (default: wait for all)")
	flags.BoolVar(&opts.waitForAll, "all", false, "require every target to be ready (explicit form of the default)")
	flags.IntVar(&opts.retryLimit, "retry-limit", cfg.RetryLimit, "maximum retry attempts per target (0 = unlimited)")
	flags.StringArrayVar(&opts.headers, "header", nil, "HTTP header in \"Name: value\" form, repeatable")
	flags.StringVar(&opts.securityPreset, "security-preset", cfg.SecurityPreset, "target policy preset: production, development, or off")
	flags.IntVar(&opts.rateLimit, "rate-limit", cfg.RateLimit, "max attempts per endpoint per minute (0 = unlimited)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "per-target progress output")
	flags.BoolVar(&opts.json, "json", false, "output result as JSON on stdout")
	root.MarkFlagsMutuallyExclusive("any", "all")
	root.MarkFlagsMutuallyExclusive("quiet", "json")
	root.MarkFlagsMutuallyExclusive("quiet", "verbose")

	root.AddCommand(newServeCmd(cfg))
	return root
}

// splitArgs separates probe targets from the post-success command after --.
func splitArgs(cmd *cobra.Command, args []string) (targets, command []string) {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return args[:at], args[at:]
	}
	return args, nil
}

func runWait(ctx context.Context, cfg *config.Config, opts *cliOptions, targetSpecs, command []string) int {
	renderer := output.NewRenderer(os.Stdout, os.Stderr, output.Options{
		JSON:    opts.json,
		Quiet:   opts.quiet,
		Verbose: opts.verbose,
	})

	waitCfg, targets, err := buildWait(cfg, opts, targetSpecs)
	if err != nil {
		renderer.Render(nil, err)
		return output.ExitUsage
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx)
	if err != nil {
		slog.Warn("telemetry init failed, continuing without it", "error", err)
		telemetryShutdown = func(context.Context) error { return nil }
	}

	meters, err := telemetry.NewMeters()
	if err != nil {
		slog.Warn("metrics unavailable", "error", err)
	}

	waiter := wait.New(waitCfg, wait.WithMeters(meters))
	res, waitErr := waiter.Wait(ctx, targets)

	renderer.Render(res, waitErr)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetryShutdown(flushCtx); err != nil {
		slog.Warn("telemetry shutdown error", "error", err)
	}

	code := output.ExitCode(res, waitErr)
	if code != output.ExitSuccess {
		return code
	}

	if err := executeCommand(ctx, command); err != nil {
		fmt.Fprintf(os.Stderr, "command execution error: %v\n", err)
		return output.ExitCommandFailure
	}
	return output.ExitSuccess
}

// buildWait turns flags into a validated engine config and target list.
func buildWait(cfg *config.Config, opts *cliOptions, specs []string) (wait.Config, []target.Target, error) {
	waitCfg := cfg.WaitConfig()

	var err error
	if waitCfg.Timeout, err = parseFlagDuration("timeout", opts.timeout); err != nil {
		return wait.Config{}, nil, err
	}
	if waitCfg.Interval, err = parseFlagDuration("interval", opts.interval); err != nil {
		return wait.Config{}, nil, err
	}
	if waitCfg.MaxInterval, err = parseFlagDuration("max-interval", opts.maxInterval); err != nil {
		return wait.Config{}, nil, err
	}
	if waitCfg.ConnectionTimeout, err = parseFlagDuration("connection-timeout", opts.connectionTimeout); err != nil {
		return wait.Config{}, nil, err
	}
	waitCfg.RetryLimit = opts.retryLimit
	waitCfg.WaitForAny = opts.waitForAny

	validator, err := policy.Preset(opts.securityPreset)
	if err != nil {
		return wait.Config{}, nil, err
	}
	var limiter *policy.RateLimiter
	if opts.rateLimit > 0 {
		limiter = policy.NewRateLimiter(opts.rateLimit, time.Minute)
	}
	if validator != nil || limiter != nil {
		waitCfg.Gate = policy.NewGate(validator, limiter)
	}

	headers, err := target.ParseHeaders(opts.headers)
	if err != nil {
		return wait.Config{}, nil, err
	}
	targets, err := target.ParseAll(specs, opts.expectStatus)
	if err != nil {
		return wait.Config{}, nil, err
	}
	if len(headers) > 0 {
		for i, tgt := range targets {
			if targets[i], err = tgt.WithHeaders(headers); err != nil {
				return wait.Config{}, nil, err
			}
		}
	}
	return waitCfg, targets, nil
}

func parseFlagDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, types.NewError(types.ErrCodeInvalidInput, "invalid --%s value %q: expected a positive duration like \"30s\"", name, value)
	}
	return d, nil
}

// executeCommand runs the post-success command with inherited streams.
func executeCommand(ctx context.Context, command []string) error {
	if len(command) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	var port int

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wait engine as MCP tools over Streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd.Context(), cfg, port)
		},
	}
	serve.Flags().IntVar(&port, "port", cfg.MCPPort, "MCP server port")
	return serve
}

func runServe(ctx context.Context, cfg *config.Config, port int) error {
	slog.Info("starting netwait MCP server", "port", port)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	meters, err := telemetry.NewMeters()
	if err != nil {
		slog.Warn("metrics unavailable", "error", err)
	}
	registry := tools.DefaultRegistry(
		&tools.WaitForTargetsTool{Cfg: cfg, Meters: meters},
		&tools.CheckTargetTool{Cfg: cfg},
		&tools.ValidateTargetTool{Cfg: cfg},
	)
	srv := mcpserver.NewServer(registry)

	// Health check endpoints on a separate port.
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	healthMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	go func() {
		healthAddr := fmt.Sprintf(":%d", port+1)
		slog.Info("health check server listening", "addr", healthAddr)
		if err := http.ListenAndServe(healthAddr, healthMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := telemetryShutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
