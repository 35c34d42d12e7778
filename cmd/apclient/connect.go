package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	archipelago "github.com/NeboLoop/archipelago-go-sdk"
	"github.com/NeboLoop/archipelago-go-sdk/datapackage"
	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

type connectOptions struct {
	host        string
	port        int
	insecure    bool
	slot        string
	game        string
	password    string
	tags        []string
	transport   string
	reconnect   bool
	threshold   int
	metricsAddr string
	chat        bool
	debug       bool
}

func connectCmd() *cobra.Command {
	port, _ := strconv.Atoi(envOr("AP_PORT", strconv.Itoa(archipelago.DefaultPort)))
	opts := connectOptions{
		host:     envOr("AP_HOST", archipelago.DefaultHost),
		port:     port,
		slot:     os.Getenv("AP_SLOT"),
		game:     os.Getenv("AP_GAME"),
		password: os.Getenv("AP_PASSWORD"),
	}

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a room as a slot",
		Long: `Join a room as a slot and stay connected until interrupted.

Chat and item messages are printed to stdout. Lines read from stdin
are sent to the room as chat.

Environment: AP_HOST, AP_PORT, AP_SLOT, AP_GAME, AP_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.slot == "" {
				return errors.New("a slot name is required (--slot or AP_SLOT)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, opts, os.Stdin, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", opts.host, "Room host")
	f.IntVarP(&opts.port, "port", "p", opts.port, "Room port")
	f.BoolVar(&opts.insecure, "insecure", false, "Use ws:// instead of wss://")
	f.StringVar(&opts.slot, "slot", opts.slot, "Slot name")
	f.StringVar(&opts.game, "game", opts.game, "Game name; empty connects as a text client")
	f.StringVar(&opts.password, "password", opts.password, "Room password")
	f.StringSliceVar(&opts.tags, "tags", []string{wire.TagTextOnly}, "Connect tags")
	f.StringVar(&opts.transport, "transport", archipelago.TransportGobwas, "Websocket library: gobwas or gorilla")
	f.BoolVar(&opts.reconnect, "reconnect", true, "Reconnect after network failures")
	f.IntVar(&opts.threshold, "threshold", 0, "Closes per minute before giving up; 0 uses the default, negative never gives up")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
	f.BoolVar(&opts.chat, "chat", true, "Send stdin lines as chat")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return cmd
}

func runConnect(ctx context.Context, opts connectOptions, in io.Reader, out io.Writer) error {
	logger := newLogger(opts.debug)

	cfg := archipelago.Config{
		Host:          opts.host,
		Port:          opts.port,
		Insecure:      opts.insecure,
		AutoReconnect: opts.reconnect,
		Threshold:     opts.threshold,
		Transport:     opts.transport,
		DialTimeout:   10 * time.Second,
	}
	if _, err := cfg.URL(); err != nil {
		return err
	}

	connect := wire.Connect{
		Password:      opts.password,
		Game:          opts.game,
		Name:          opts.slot,
		Version:       wire.Version{Major: 0, Minor: 5, Build: 1},
		ItemsHandling: wire.ItemsHandlingAll,
		Tags:          opts.tags,
	}

	registry := prometheus.NewRegistry()
	metrics := archipelago.NewMetrics(archipelago.WithRegistry(registry))

	sess := newSession(connect, datapackage.New(), logger, out)
	client := archipelago.New(cfg, sess,
		archipelago.WithLogger(logger),
		archipelago.WithMetrics(metrics),
	)
	sess.send = client

	var srv *http.Server
	if opts.metricsAddr != "" {
		srv = &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           newRouter(client, sess, registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if err := client.Start(); err != nil {
		return err
	}
	if opts.chat {
		go forwardChat(in, client, logger)
	}

	err := client.Wait(ctx, nil)
	client.Close()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, disconnected from room")
		return nil
	}
	if err != nil {
		return err
	}
	// the client gave up on its own
	return sess.fatalError()
}

// forwardChat sends every non-empty line of in as a Say packet.
func forwardChat(in io.Reader, s sender, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.Send(wire.Say{Text: line}); err != nil {
			logger.Warn("chat not sent", "error", err)
			return
		}
	}
}

type stateReporter interface {
	State() archipelago.State
	UUID() string
}

func newRouter(client stateReporter, sess *session, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		state := client.State()
		status := http.StatusOK
		if state != archipelago.StateReady {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"state":     state.String(),
			"client_id": client.UUID(),
			"slot":      sess.slotNumber(),
		})
	})
	return r
}
