package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/logging"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/recovery"
	"github.com/acolita/truerand/internal/timeout"
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(randomFloatTool(), s.handleRandomFloat)
	s.mcpServer.AddTool(randomUniformTool(), s.handleRandomUniform)
	s.mcpServer.AddTool(randomIntTool(), s.handleRandomInt)
	s.mcpServer.AddTool(randomChoiceTool(), s.handleRandomChoice)
	s.mcpServer.AddTool(randomShuffleTool(), s.handleRandomShuffle)
	s.mcpServer.AddTool(randomSampleTool(), s.handleRandomSample)
	s.mcpServer.AddTool(randomGaussTool(), s.handleRandomGauss)
	s.mcpServer.AddTool(randomDistributionTool(), s.handleRandomDistribution)
	s.mcpServer.AddTool(randomBitsTool(), s.handleRandomBits)
	s.mcpServer.AddTool(entropyStatusTool(), s.handleEntropyStatus)
}

// Tool definitions

func randomFloatTool() mcp.Tool {
	return mcp.NewTool("random_float",
		mcp.WithDescription("Draw floats in [0, 1) from the hardware entropy source"),
		mcp.WithNumber("count",
			mcp.Description(descCount),
			mcp.DefaultNumber(1),
		),
	)
}

func randomUniformTool() mcp.Tool {
	return mcp.NewTool("random_uniform",
		mcp.WithDescription("Draw a float uniformly distributed between a and b"),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("Lower bound")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Upper bound")),
	)
}

func randomIntTool() mcp.Tool {
	return mcp.NewTool("random_int",
		mcp.WithDescription("Draw an integer N with a <= N <= b"),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("Lowest possible value")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Highest possible value")),
	)
}

func randomChoiceTool() mcp.Tool {
	return mcp.NewTool("random_choice",
		mcp.WithDescription("Pick one item at random"),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description(descItems),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func randomShuffleTool() mcp.Tool {
	return mcp.NewTool("random_shuffle",
		mcp.WithDescription("Return the items in a random order"),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("The items to shuffle"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func randomSampleTool() mcp.Tool {
	return mcp.NewTool("random_sample",
		mcp.WithDescription("Pick k distinct items at random"),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description(descItems),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("k", mcp.Required(), mcp.Description("How many items to pick")),
	)
}

func randomGaussTool() mcp.Tool {
	return mcp.NewTool("random_gauss",
		mcp.WithDescription("Draw from a normal distribution"),
		mcp.WithNumber("mu", mcp.Description("Mean (default: 0)"), mcp.DefaultNumber(0)),
		mcp.WithNumber("sigma", mcp.Description("Standard deviation (default: 1)"), mcp.DefaultNumber(1)),
	)
}

func randomDistributionTool() mcp.Tool {
	return mcp.NewTool("random_distribution",
		mcp.WithDescription("Draw from a named distribution. Parameters by name: "+distributionHelp()),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Distribution name"),
			mcp.Enum(distrib.Names()...),
		),
		mcp.WithArray("params",
			mcp.Description("Distribution parameters, in order"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithNumber("count",
			mcp.Description(descCount),
			mcp.DefaultNumber(1),
		),
	)
}

func randomBitsTool() mcp.Tool {
	return mcp.NewTool("random_bits",
		mcp.WithDescription("Read raw bits from the entropy source, most significant bit of each byte first"),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Number of bits")),
	)
}

func entropyStatusTool() mcp.Tool {
	return mcp.NewTool("entropy_status",
		mcp.WithDescription("Report the entropy source, draw timeout and draw counters"),
	)
}

func distributionHelp() string {
	var parts []string
	for _, name := range distrib.Names() {
		d, _ := distrib.Lookup(name)
		parts = append(parts, fmt.Sprintf("%s(%s)", name, strings.Join(d.Params, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Tool handlers

func (s *Server) handleRandomFloat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := mcp.ParseInt(req, "count", 1)
	if r := validateCount(count); r != nil {
		return r, nil
	}

	values, err := distrib.DrawN(s.generator(ctx), "random", nil, count)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"values": values})
}

func (s *Server) handleRandomUniform(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, r := requireTwoNumbers(req, "a", "b")
	if r != nil {
		return r, nil
	}

	v, err := distrib.Uniform(s.generator(ctx), a, b)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"value": v})
}

func (s *Server) handleRandomInt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, r := requireTwoNumbers(req, "a", "b")
	if r != nil {
		return r, nil
	}
	if a != float64(int(a)) || b != float64(int(b)) {
		return kindError(kindInvalidArgument, "a and b must be integers"), nil
	}

	v, err := distrib.RandInt(s.generator(ctx), int(a), int(b))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"value": v})
}

func (s *Server) handleRandomChoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, r := parseItems(req)
	if r != nil {
		return r, nil
	}

	v, err := distrib.Choice(s.generator(ctx), items)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"item": v})
}

func (s *Server) handleRandomShuffle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, r := parseItems(req)
	if r != nil {
		return r, nil
	}

	err := distrib.Shuffle(s.generator(ctx), len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"items": items})
}

func (s *Server) handleRandomSample(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, r := parseItems(req)
	if r != nil {
		return r, nil
	}
	if _, ok := req.GetArguments()["k"]; !ok {
		return kindError(kindInvalidArgument, "k is required"), nil
	}
	k := mcp.ParseInt(req, "k", 0)

	picked, err := distrib.Sample(s.generator(ctx), items, k)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"items": picked})
}

func (s *Server) handleRandomGauss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mu := mcp.ParseFloat64(req, "mu", 0)
	sigma := mcp.ParseFloat64(req, "sigma", 1)

	v, err := s.gauss.Gauss(s.generator(ctx), mu, sigma)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"value": v})
}

func (s *Server) handleRandomDistribution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(req, "name", "")
	if name == "" {
		return kindError(kindInvalidArgument, "name is required"), nil
	}
	params, r := parseNumbers(req, "params")
	if r != nil {
		return r, nil
	}
	count := mcp.ParseInt(req, "count", 1)
	if r := validateCount(count); r != nil {
		return r, nil
	}

	slog.Debug("drawing from distribution",
		slog.String("name", name),
		slog.Int("count", count),
	)

	values, err := distrib.DrawN(s.generator(ctx), name, params, count)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"name": strings.ToLower(name), "values": values})
}

func (s *Server) handleRandomBits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.bits == nil {
		return kindError(kindSourceUnavailable, "this source does not serve raw bits"), nil
	}
	n := mcp.ParseInt(req, "n", -1)
	if n < 0 || n > maxBits {
		return kindError(kindInvalidArgument, fmt.Sprintf("n must be between 0 and %d", maxBits)), nil
	}

	bits, err := timeout.DoGated(ctx, s.gate, s.drawTimeout(), s.clock, func() ([]ports.Bit, error) {
		return s.bits.Bits(n)
	})
	s.record(err)
	if err != nil {
		return errorResult(err), nil
	}

	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		sb.WriteByte('0' + byte(b))
	}
	return jsonResult(map[string]any{"n": n, "bits": sb.String()})
}

// StatusResult is the entropy_status payload.
type StatusResult struct {
	Source        string `json:"source"`
	Kind          string `json:"kind"`
	Timeout       string `json:"timeout"`
	Draws         int64  `json:"draws"`
	Failures      int64  `json:"failures"`
	LastError     string `json:"last_error,omitempty"`
	Hint          string `json:"hint,omitempty"`
	PendingDraw   bool   `json:"pending_draw"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	// RestartNeeded names reloaded settings that wait for a restart.
	RestartNeeded []string `json:"restart_needed,omitempty"`
}

func (s *Server) handleEntropyStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	d := s.config.Source.Timeout
	restart := s.restartNeeded
	s.mu.RUnlock()

	status := StatusResult{
		Source:        s.source,
		Kind:          s.kind,
		RestartNeeded: restart,
		Timeout:       "none",
		Draws:         s.draws.Load(),
		Failures:      s.failures.Load(),
		UptimeSeconds: int64(s.clock.Now().Sub(s.started) / time.Second),
		PendingDraw:   s.gate.Pending(),
	}
	if d > 0 {
		status.Timeout = d.String()
	}
	if last, ok := s.lastErr.Load().(failure); ok {
		status.LastError = last.err.Error()
		if hint := recovery.NewAnalyzer().Best(last.err); hint != nil {
			status.Hint = hint.Explanation
		}
	}
	return jsonResult(status)
}

// Argument helpers

func validateCount(count int) *mcp.CallToolResult {
	if count < 1 || count > maxCount {
		return kindError(kindInvalidArgument, fmt.Sprintf("count must be between 1 and %d", maxCount))
	}
	return nil
}

func requireTwoNumbers(req mcp.CallToolRequest, x, y string) (float64, float64, *mcp.CallToolResult) {
	args := req.GetArguments()
	for _, key := range []string{x, y} {
		if _, ok := args[key].(float64); !ok {
			return 0, 0, kindError(kindInvalidArgument, key+" is required and must be a number")
		}
	}
	return mcp.ParseFloat64(req, x, 0), mcp.ParseFloat64(req, y, 0), nil
}

// parseItems reads the items array. Non-string entries are rendered with
// fmt so numbers and booleans can be picked too.
func parseItems(req mcp.CallToolRequest) ([]string, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()["items"].([]any)
	if !ok {
		return nil, kindError(kindInvalidArgument, "items is required and must be an array")
	}
	if len(raw) > maxItems {
		return nil, kindError(kindInvalidArgument, fmt.Sprintf("at most %d items", maxItems))
	}
	items := make([]string, len(raw))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			items[i] = str
			continue
		}
		items[i] = fmt.Sprint(v)
	}
	slog.Debug("parsed items",
		slog.Int("count", len(items)),
		slog.String("preview", logging.Truncate(strings.Join(items, ","), 80)),
	)
	return items, nil
}

func parseNumbers(req mcp.CallToolRequest, key string) ([]float64, *mcp.CallToolResult) {
	v, present := req.GetArguments()[key]
	if !present || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, kindError(kindInvalidArgument, key+" must be an array of numbers")
	}
	out := make([]float64, len(raw))
	for i, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil, kindError(kindInvalidArgument, fmt.Sprintf("%s[%d] is not a number", key, i))
		}
		out[i] = f
	}
	return out, nil
}

// Results

// errorKind classifies err for tool error results.
func errorKind(err error) string {
	switch {
	case errors.Is(err, entropy.ErrSourceExhausted):
		return kindSourceExhausted
	case errors.Is(err, entropy.ErrSourceUnavailable):
		return kindSourceUnavailable
	case errors.Is(err, timeout.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return kindTimeout
	case errors.Is(err, distrib.ErrInvalidArgument),
		errors.Is(err, entropy.ErrInvalidCount):
		return kindInvalidArgument
	default:
		return kindInternal
	}
}

func errorResult(err error) *mcp.CallToolResult {
	kind := errorKind(err)
	if kind != kindInvalidArgument {
		slog.Warn("draw failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
	return kindError(kind, err.Error())
}

func kindError(kind, msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(kind + ": " + msg)
}

// jsonResult converts a value to a JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
