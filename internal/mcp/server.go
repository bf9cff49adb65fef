// Package mcp serves entropy-backed random values over the MCP protocol.
package mcp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acolita/truerand/internal/adapters/realclock"
	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/logging"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/timeout"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server implementation.
type Server struct {
	mcpServer *server.MCPServer
	gen       ports.RandomGenerator
	bits      ports.BitSource
	source    string
	kind      string // kind of the open source, fixed at startup
	clock     ports.Clock
	started   time.Time

	// gate keeps at most one draw outstanding against the source.
	gate *timeout.Gate

	// gauss holds the spare Box-Muller value between random_gauss calls.
	gauss distrib.Gaussian

	mu            sync.RWMutex
	config        *config.Config
	restartNeeded []string

	draws    atomic.Int64
	failures atomic.Int64
	lastErr  atomic.Value // failure
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithClock sets the clock used for timeouts and uptime.
func WithClock(clk ports.Clock) ServerOption {
	return func(s *Server) {
		s.clock = clk
	}
}

// WithSourceName sets the source label reported by entropy_status.
func WithSourceName(name string) ServerOption {
	return func(s *Server) {
		s.source = name
	}
}

// WithBitSource sets where random_bits reads from. By default it uses the
// generator itself when the generator can serve raw bits.
func WithBitSource(src ports.BitSource) ServerOption {
	return func(s *Server) {
		s.bits = src
	}
}

// NewServer creates an MCP server drawing from gen.
func NewServer(cfg *config.Config, gen ports.RandomGenerator, opts ...ServerOption) *Server {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		gen:       gen,
		config:    cfg,
		kind:      cfg.Source.Kind,
		clock:     realclock.New(),
		gate:      timeout.NewGate(),
	}
	if bs, ok := gen.(ports.BitSource); ok {
		s.bits = bs
	}

	for _, opt := range opts {
		opt(s)
	}
	s.started = s.clock.Now()

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio transport.
func (s *Server) Run() error {
	slog.Info("starting MCP server on stdio transport",
		slog.String("source", s.source),
	)
	return server.ServeStdio(s.mcpServer)
}

// UpdateConfig applies a reloaded configuration. The draw timeout and log
// level change immediately. Settings in r.RestartNeeded keep their startup
// values and are reported by entropy_status until the process restarts.
func (s *Server) UpdateConfig(r config.Reload) {
	s.mu.Lock()
	old := s.config
	s.config = r.Config
	s.restartNeeded = r.RestartNeeded
	s.mu.Unlock()

	if old.Source.Timeout != r.Config.Source.Timeout {
		slog.Info("draw timeout updated",
			slog.Duration("old", old.Source.Timeout),
			slog.Duration("new", r.Config.Source.Timeout),
		)
	}
	if old.Logging.Level != r.Config.Logging.Level {
		logging.SetLevel(r.Config.Logging.Level)
		slog.Info("log level updated", slog.String("level", r.Config.Logging.Level))
	}
}

func (s *Server) drawTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Source.Timeout
}

// ctxGenerator adapts the server's generator to one request: every draw is
// bounded by the configured timeout and by the request context.
type ctxGenerator struct {
	ctx context.Context
	s   *Server
	d   time.Duration
}

func (g ctxGenerator) Random() (float64, error) {
	v, err := timeout.DoGated(g.ctx, g.s.gate, g.d, g.s.clock, g.s.gen.Random)
	g.s.record(err)
	return v, err
}

func (g ctxGenerator) Seed(v any)              { g.s.gen.Seed(v) }
func (g ctxGenerator) GetState() ports.State   { return g.s.gen.GetState() }
func (g ctxGenerator) SetState(st ports.State) { g.s.gen.SetState(st) }

func (s *Server) generator(ctx context.Context) ports.RandomGenerator {
	return ctxGenerator{ctx: ctx, s: s, d: s.drawTimeout()}
}

// failure boxes an error so atomic.Value always stores one concrete type.
type failure struct{ err error }

func (s *Server) record(err error) {
	if err != nil {
		s.failures.Add(1)
		s.lastErr.Store(failure{err})
		return
	}
	s.draws.Add(1)
}
