// Command wsrelay connects to a local upstream WebSocket feed and rebroadcasts every
// text message to all connected downstream subscribers.
//
// Usage:
//
//	wsrelay <upstream-port>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/wsrelay/core/config"
	"github.com/dmitrymomot/wsrelay/core/health"
	"github.com/dmitrymomot/wsrelay/core/logger"
	"github.com/dmitrymomot/wsrelay/core/server"
	"github.com/dmitrymomot/wsrelay/integration/database/redis"
	"github.com/dmitrymomot/wsrelay/internal/relay"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitUpstream = 3
)

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its result to a process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stderr)
	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "wsrelay: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, cmd.UseLine())
		}
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, relay.ErrUpstreamUnavailable), errors.Is(err, relay.ErrUpstreamLost):
		return exitUpstream
	default:
		return exitFailure
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wsrelay <upstream-port>",
		Short:         "Relay a local WebSocket feed to many subscribers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one argument, the upstream port", errUsage)
			}
			_, err := parsePort(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := parsePort(args[0])
			return run(cmd.Context(), port, logOut)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
	return cmd
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: port is not a number: %q", errUsage, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port out of range: %d", errUsage, port)
	}
	return port, nil
}

func run(ctx context.Context, port int, logOut io.Writer) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	logOpts := []logger.Option{logger.ForEnv(cfg.Env, cfg.AppName), logger.WithOutput(logOut)}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	log := logger.New(logOpts...)

	policy, err := broadcast.ParseOverflowPolicy(cfg.Relay.OverflowPolicy)
	if err != nil {
		return fmt.Errorf("%w: RELAY_OVERFLOW_POLICY: %w", errUsage, err)
	}
	hub := broadcast.NewMemoryBroadcaster[string](cfg.Relay.BufferSize, broadcast.WithOverflowPolicy(policy))
	defer hub.Close()

	// The upstream must be reachable before subscribers are accepted.
	upstreamURL := relay.UpstreamURL(cfg.Relay.UpstreamHost, port, cfg.Relay.UpstreamPath)
	reader, err := relay.Dial(ctx, upstreamURL, hub,
		relay.WithReaderLogger(log),
		relay.WithDialTimeout(cfg.Relay.DialTimeout),
	)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	readyChecks := []func(context.Context) error{reader.Healthcheck}

	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.ErrorContext(ctx, "failed to connect to redis", logger.Component("redis"), logger.Error(err))
			return err
		}
		defer client.Close()

		mirror := relay.NewMirror(client, cfg.Relay.MirrorChannel, hub.Subscribe(ctx), relay.WithMirrorLogger(log))
		eg.Go(func() error { return mirror.Run(ctx) })
		readyChecks = append(readyChecks, redis.Healthcheck(client))
	}

	relayHandler := newRelayHandler(hub, cfg.Relay, log)

	mux := http.NewServeMux()
	mux.Handle(cfg.Relay.Path, relayHandler)
	mux.Handle("GET /health/live", health.Liveness())
	mux.Handle("GET /health/ready", health.Readiness(log, readyChecks...))
	mux.Handle("GET /health/ping", health.NoContent())

	srv, err := server.NewFromConfig(cfg.Server,
		server.WithLogger(log.With(logger.Component("server"))),
		// Hijacked connections outlive Shutdown; closing the hub ends their sessions.
		server.WithOnShutdown(func() { _ = hub.Close() }),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	eg.Go(func() error { return reader.Run(ctx) })
	eg.Go(srv.Run(ctx, mux))

	log.InfoContext(ctx, "relay started",
		logger.URL(upstreamURL),
		logger.Key("listen", cfg.Server.Addr),
		logger.Path(cfg.Relay.Path),
		logger.Key("buffer_size", cfg.Relay.BufferSize),
		logger.Key("overflow_policy", policy.String()),
	)

	err = eg.Wait()

	// The shutdown hook runs asynchronously; close the hub here too and let every
	// session send its close frame before the process exits.
	_ = hub.Close()
	drainSessions(relayHandler, cfg.Server.ShutdownTimeout, log)

	if err != nil {
		log.Error("relay stopped", logger.Error(err))
		return err
	}

	log.Info("relay stopped")
	return nil
}

func drainSessions(h *relay.Handler, timeout time.Duration, log *slog.Logger) {
	if timeout <= 0 {
		timeout = server.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Wait(ctx); err != nil {
		log.Warn("subscriber sessions still running at exit",
			logger.Count("sessions", h.Active()),
			logger.Error(err),
		)
	}
}

func newRelayHandler(hub relay.Subscribable, cfg relay.Config, log *slog.Logger) *relay.Handler {
	opts := []relay.HandlerOption{
		relay.WithHandlerLogger(log),
		relay.WithHandshakeTimeout(cfg.HandshakeTimeout),
		relay.WithReadBuffer(cfg.ReadBufferSize),
		relay.WithWriteBuffer(cfg.WriteBufferSize),
		relay.WithSessionOptions(
			relay.WithWriteTimeout(cfg.WriteTimeout),
			relay.WithPingInterval(cfg.PingInterval),
		),
	}
	if cfg.AllowAnyOrigin {
		opts = append(opts, relay.WithAllowAnyOrigin())
	}
	return relay.NewHandler(hub, opts...)
}
