// Command demo runs an entity-synchronisation server: it creates a
// handful of drifting position entities, accepts WebSocket
// connections, and pushes updates at a steady tick. It exists to
// exercise the full ambient and domain stack end to end, not as a
// production host.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	hexahydrate "github.com/adred-codev/hexahydrate"
	"github.com/adred-codev/hexahydrate/internal/hostconfig"
	"github.com/adred-codev/hexahydrate/internal/hostlog"
	"github.com/adred-codev/hexahydrate/internal/ratelimit"
	"github.com/adred-codev/hexahydrate/internal/replaylog"
	"github.com/adred-codev/hexahydrate/internal/sysmonitor"
	"github.com/adred-codev/hexahydrate/internal/telemetry"
	"github.com/adred-codev/hexahydrate/transport/wstransport"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"
)

const tickInterval = 50 * time.Millisecond

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides HEXA_LOG_LEVEL)")
	flag.Parse()

	bootLogger := hostlog.New(hostlog.Options{Level: "info", Format: "console", Role: "server"})

	cfg, err := hostconfig.Load(&bootLogger)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := hostlog.New(hostlog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Role: "server"})
	cfg.LogFields(logger)
	logger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("runtime ready")

	mon, err := sysmonitor.New(logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start system monitor")
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go mon.Run(ctx, cfg.MetricsInterval)
	}

	limiter := ratelimit.New(ratelimit.Limits{PerSecond: cfg.SendRatePerSecond, Burst: cfg.SendRateBurst})

	var replay *replaylog.Log
	if brokers := splitCommaList(cfg.KafkaBrokers); len(brokers) > 0 {
		replay, err = replaylog.Open(replaylog.Config{Brokers: brokers, Topic: cfg.ReplayTopic, Logger: logger})
		if err != nil {
			logger.Warn().Err(err).Msg("replay log unavailable, continuing without it")
			replay = nil
		} else {
			defer replay.Close(context.Background())
		}
	}

	srv := hexahydrate.NewServer[connUserData](hexahydrate.DefaultConfig())
	seedEntities(srv, 8)

	reg := newConnRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleConnect(srv, reg, limiter, replay, logger, cfg.MaxBytesPerPacket, w, r)
	})

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	go driftAndBroadcastLoop(srv, reg, replay, logger, cfg.MaxBytesPerPacket)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}

func seedEntities(srv *hexahydrate.Server[connUserData], count int) {
	for i := 0; i < count; i++ {
		x, y := float32(i*10), float32(i*5)
		if _, err := srv.EntityCreateWith(func() hexahydrate.Entity[connUserData] {
			return newPosition(x, y)
		}); err == nil {
			telemetry.EntitiesCreatedTotal.Inc()
		}
	}
}

// connRegistry tracks the live WebSocket connections a broadcast tick
// needs to push frames to, keyed by the connection token's owner ID.
type connRegistry struct {
	mu    sync.Mutex
	conns map[uint64]connEntry
}

type connEntry struct {
	token hexahydrate.ConnectionToken[connUserData]
	conn  *wstransport.Conn
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[uint64]connEntry)}
}

func (r *connRegistry) add(tok hexahydrate.ConnectionToken[connUserData], conn *wstransport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[tok.OwnerID] = connEntry{token: tok, conn: conn}
}

func (r *connRegistry) remove(ownerID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, ownerID)
}

func (r *connRegistry) snapshot() []connEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]connEntry, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e)
	}
	return out
}

// driftAndBroadcastLoop nudges every entity's position on a fixed
// tick, then pushes whatever each connection's serialiser produces to
// its WebSocket, journaling every frame to the replay log when one is
// configured.
func driftAndBroadcastLoop(
	srv *hexahydrate.Server[connUserData],
	reg *connRegistry,
	replay *replaylog.Log,
	logger zerolog.Logger,
	maxBytesPerPacket int,
) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for range ticker.C {
		activeEntities := 0
		srv.UpdateEntitiesWith(func(_ hexahydrate.EntityToken, e hexahydrate.Entity[connUserData]) {
			activeEntities++
			if p, ok := e.(*position); ok {
				p.Move(1, 0)
			}
		})
		telemetry.EntitiesActive.Set(float64(activeEntities))

		entries := reg.snapshot()
		telemetry.ConnectionsActive.Set(float64(len(entries)))

		for _, entry := range entries {
			frames, err := srv.ConnectionSend(entry.token, maxBytesPerPacket)
			if err != nil {
				logger.Error().Err(err).Uint64("owner_id", entry.token.OwnerID).Msg("connection send failed")
				continue
			}
			for _, frame := range frames {
				entry.conn.Send(frame)
				telemetry.FramesSent.WithLabelValues("to_client").Inc()
				telemetry.BytesSent.WithLabelValues("to_client").Add(float64(len(frame)))
				if replay != nil {
					replay.Append(context.Background(), replaylog.Record{
						ConnectionOwnerID: entry.token.OwnerID,
						Bytes:             frame,
						Timestamp:         time.Now(),
					})
					telemetry.ReplayEventsTotal.Inc()
				}
			}
		}
	}
}

func handleConnect(
	srv *hexahydrate.Server[connUserData],
	reg *connRegistry,
	limiter *ratelimit.PerConnection,
	replay *replaylog.Log,
	logger zerolog.Logger,
	maxBytesPerPacket int,
	w http.ResponseWriter,
	r *http.Request,
) {
	conn, err := wstransport.Upgrade(w, r, logger, 64)
	if err != nil {
		logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	tok, err := srv.ConnectionAddWith(func() connUserData {
		return connUserData{RemoteAddr: r.RemoteAddr}
	})
	if err != nil {
		telemetry.ConnectionsRejected.Inc()
		logger.Warn().Err(err).Msg("connection rejected, token table full")
		conn.Close()
		return
	}
	telemetry.ConnectionsTotal.Inc()

	reg.add(tok, conn)
	logger.Info().Uint64("owner_id", tok.OwnerID).Str("remote_addr", r.RemoteAddr).Msg("connection accepted")

	defer func() {
		reg.remove(tok.OwnerID)
		limiter.Remove(tok.OwnerID)
		srv.ConnectionRemove(tok)
		conn.Close()
		logger.Info().Uint64("owner_id", tok.OwnerID).Msg("connection closed")
	}()

	for frame := range conn.Receive() {
		telemetry.FramesReceived.WithLabelValues("from_client").Inc()
		telemetry.BytesReceived.WithLabelValues("from_client").Add(float64(len(frame)))

		if !limiter.AllowN(tok.OwnerID, len(frame)) {
			continue
		}
		if err := srv.ConnectionReceive(tok, frame); err != nil {
			telemetry.InvalidPacketsTotal.Inc()
			logger.Debug().Err(err).Uint64("owner_id", tok.OwnerID).Msg("dropping malformed frame")
		}
	}
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
