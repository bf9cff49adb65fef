package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/testing/fakes/fakebits"
	"github.com/acolita/truerand/internal/testing/fakes/fakegen"
	"github.com/acolita/truerand/internal/timeout"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// --- random_float ---

func TestHandleRandomFloat(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.1, 0.2, 0.3))

	result, err := srv.handleRandomFloat(context.Background(), makeRequest(map[string]any{"count": float64(3)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values, ok := resultJSON(t, result)["values"].([]any)
	if !ok || len(values) != 3 {
		t.Fatalf("expected 3 values, got %v", resultText(result))
	}
	for i, want := range []float64{0.1, 0.2, 0.3} {
		if values[i] != want {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want)
		}
	}
}

func TestHandleRandomFloat_DefaultCount(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.5))

	result, _ := srv.handleRandomFloat(context.Background(), makeRequest(nil))
	values, _ := resultJSON(t, result)["values"].([]any)
	if len(values) != 1 {
		t.Errorf("expected 1 value by default, got %v", values)
	}
}

func TestHandleRandomFloat_BadCount(t *testing.T) {
	for _, count := range []float64{0, -3, maxCount + 1} {
		t.Run(fmt.Sprint(count), func(t *testing.T) {
			gen := fakegen.NewCycling(0.5)
			srv, _ := newTestServer(gen)

			result, _ := srv.handleRandomFloat(context.Background(), makeRequest(map[string]any{"count": count}))
			requireErrorKind(t, result, kindInvalidArgument)
			if gen.Calls() != 0 {
				t.Errorf("rejected request drew %d values", gen.Calls())
			}
		})
	}
}

func TestHandleRandomFloat_SourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"exhausted", fmt.Errorf("%w: /dev/fake: EOF", entropy.ErrSourceExhausted), kindSourceExhausted},
		{"unavailable", fmt.Errorf("%w: /dev/fake: io error", entropy.ErrSourceUnavailable), kindSourceUnavailable},
		{"other", errors.New("boom"), kindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := fakegen.New()
			gen.Err = tt.err
			srv, _ := newTestServer(gen)

			result, err := srv.handleRandomFloat(context.Background(), makeRequest(nil))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			requireErrorKind(t, result, tt.kind)
		})
	}
}

// --- random_uniform / random_int ---

func TestHandleRandomUniform(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.25))

	result, _ := srv.handleRandomUniform(context.Background(), makeRequest(map[string]any{
		"a": float64(10), "b": float64(20),
	}))
	if v := resultJSON(t, result)["value"]; v != 12.5 {
		t.Errorf("value = %v, want 12.5", v)
	}
}

func TestHandleRandomUniform_MissingBound(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.25))

	result, _ := srv.handleRandomUniform(context.Background(), makeRequest(map[string]any{"a": float64(1)}))
	requireErrorKind(t, result, kindInvalidArgument)
}

func TestHandleRandomInt(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		r    float64
		want float64
		kind string
	}{
		{name: "low", args: map[string]any{"a": float64(1), "b": float64(6)}, r: 0, want: 1},
		{name: "high", args: map[string]any{"a": float64(1), "b": float64(6)}, r: 0.99, want: 6},
		{name: "fractional", args: map[string]any{"a": 1.5, "b": float64(6)}, kind: kindInvalidArgument},
		{name: "empty range", args: map[string]any{"a": float64(6), "b": float64(1)}, kind: kindInvalidArgument},
		{name: "missing", args: map[string]any{"b": float64(1)}, kind: kindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(fakegen.New(tt.r))

			result, _ := srv.handleRandomInt(context.Background(), makeRequest(tt.args))
			if tt.kind != "" {
				requireErrorKind(t, result, tt.kind)
				return
			}
			if v := resultJSON(t, result)["value"]; v != tt.want {
				t.Errorf("value = %v, want %v", v, tt.want)
			}
		})
	}
}

// --- random_choice / random_shuffle / random_sample ---

func TestHandleRandomChoice(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.5))

	result, _ := srv.handleRandomChoice(context.Background(), makeRequest(map[string]any{
		"items": []any{"red", "green", "blue"},
	}))
	if item := resultJSON(t, result)["item"]; item != "green" {
		t.Errorf("item = %v, want green", item)
	}
}

func TestHandleRandomChoice_NonStringItems(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.9))

	result, _ := srv.handleRandomChoice(context.Background(), makeRequest(map[string]any{
		"items": []any{float64(1), true, float64(42)},
	}))
	if item := resultJSON(t, result)["item"]; item != "42" {
		t.Errorf("item = %v, want 42", item)
	}
}

func TestHandleRandomChoice_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing", map[string]any{}},
		{"not an array", map[string]any{"items": "abc"}},
		{"empty", map[string]any{"items": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(fakegen.New(0.5))
			result, _ := srv.handleRandomChoice(context.Background(), makeRequest(tt.args))
			requireErrorKind(t, result, kindInvalidArgument)
		})
	}
}

func TestHandleRandomShuffle(t *testing.T) {
	srv, _ := newTestServer(fakegen.NewCycling(0))

	result, _ := srv.handleRandomShuffle(context.Background(), makeRequest(map[string]any{
		"items": []any{"a", "b", "c", "d"},
	}))
	items, _ := resultJSON(t, result)["items"].([]any)
	got := make([]string, len(items))
	for i, v := range items {
		got[i], _ = v.(string)
	}
	if want := []string{"b", "c", "d", "a"}; !slices.Equal(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestHandleRandomSample(t *testing.T) {
	srv, _ := newTestServer(fakegen.NewCycling(0.5))

	result, _ := srv.handleRandomSample(context.Background(), makeRequest(map[string]any{
		"items": []any{"w", "x", "y", "z"},
		"k":     float64(2),
	}))
	items, _ := resultJSON(t, result)["items"].([]any)
	if len(items) != 2 || items[0] != "y" || items[1] != "x" {
		t.Errorf("items = %v, want [y x]", items)
	}
}

func TestHandleRandomSample_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"k missing", map[string]any{"items": []any{"a"}}},
		{"k too large", map[string]any{"items": []any{"a"}, "k": float64(2)}},
		{"k negative", map[string]any{"items": []any{"a"}, "k": float64(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(fakegen.NewCycling(0.5))
			result, _ := srv.handleRandomSample(context.Background(), makeRequest(tt.args))
			requireErrorKind(t, result, kindInvalidArgument)
		})
	}
}

// --- random_gauss ---

func TestHandleRandomGauss_UsesSpareValue(t *testing.T) {
	gen := fakegen.NewCycling(0.25, 0.5)
	srv, _ := newTestServer(gen)

	for i := 0; i < 2; i++ {
		result, _ := srv.handleRandomGauss(context.Background(), makeRequest(map[string]any{
			"mu": float64(5), "sigma": float64(2),
		}))
		if _, ok := resultJSON(t, result)["value"].(float64); !ok {
			t.Fatalf("expected numeric value, got %s", resultText(result))
		}
	}
	if gen.Calls() != 2 {
		t.Errorf("two gauss calls drew %d values, want 2", gen.Calls())
	}
}

// --- random_distribution ---

func TestHandleRandomDistribution(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.5, 0.25))

	result, _ := srv.handleRandomDistribution(context.Background(), makeRequest(map[string]any{
		"name":   "Uniform",
		"params": []any{float64(0), float64(8)},
		"count":  float64(2),
	}))
	m := resultJSON(t, result)
	if m["name"] != "uniform" {
		t.Errorf("name = %v, want uniform", m["name"])
	}
	values, _ := m["values"].([]any)
	if len(values) != 2 || values[0] != float64(4) || values[1] != float64(2) {
		t.Errorf("values = %v, want [4 2]", values)
	}
}

func TestHandleRandomDistribution_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing name", map[string]any{}},
		{"unknown name", map[string]any{"name": "cauchy"}},
		{"wrong param count", map[string]any{"name": "gamma", "params": []any{float64(1)}}},
		{"non-numeric param", map[string]any{"name": "expo", "params": []any{"fast"}}},
		{"params not array", map[string]any{"name": "expo", "params": "1"}},
		{"bad parameter value", map[string]any{"name": "gamma", "params": []any{float64(-1), float64(1)}}},
		{"bad count", map[string]any{"name": "random", "count": float64(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(fakegen.NewCycling(0.5))
			result, _ := srv.handleRandomDistribution(context.Background(), makeRequest(tt.args))
			requireErrorKind(t, result, kindInvalidArgument)
		})
	}
}

// --- random_bits ---

func TestHandleRandomBits(t *testing.T) {
	bits := fakebits.New([]ports.Bit{1, 0, 1, 1, 0})
	srv, _ := newTestServer(fakegen.New(), WithBitSource(bits))

	result, _ := srv.handleRandomBits(context.Background(), makeRequest(map[string]any{"n": float64(5)}))
	m := resultJSON(t, result)
	if m["bits"] != "10110" {
		t.Errorf("bits = %v, want 10110", m["bits"])
	}
	if m["n"] != float64(5) {
		t.Errorf("n = %v, want 5", m["n"])
	}
}

func TestHandleRandomBits_Invalid(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(), WithBitSource(fakebits.New(nil)))

	for _, args := range []map[string]any{{}, {"n": float64(-1)}, {"n": float64(maxBits + 1)}} {
		result, _ := srv.handleRandomBits(context.Background(), makeRequest(args))
		requireErrorKind(t, result, kindInvalidArgument)
	}
}

func TestHandleRandomBits_NoBitSource(t *testing.T) {
	srv, _ := newTestServer(fakegen.New())

	result, _ := srv.handleRandomBits(context.Background(), makeRequest(map[string]any{"n": float64(8)}))
	requireErrorKind(t, result, kindSourceUnavailable)
}

// --- timeouts ---

func TestDrawTimeout(t *testing.T) {
	gen := fakegen.NewBlocking(0.5)
	defer gen.Release()

	srv, clk := newTestServer(gen)
	cfg := config.DefaultConfig()
	cfg.Source.Timeout = 2 * time.Second
	srv.UpdateConfig(config.Reload{Config: cfg})

	done := make(chan *mcpgo.CallToolResult, 1)
	go func() {
		result, _ := srv.handleRandomFloat(context.Background(), makeRequest(nil))
		done <- result
	}()

	<-gen.Started()
	deadline := time.Now().Add(2 * time.Second)
	for clk.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("draw never armed its timeout")
		}
		time.Sleep(time.Millisecond)
	}
	clk.Advance(2 * time.Second)

	select {
	case result := <-done:
		requireErrorKind(t, result, kindTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not time out")
	}
}

func TestRetryBehindStalledDrawDoesNotStack(t *testing.T) {
	gen := fakegen.NewBlocking(0.5)
	srv, clk := newTestServer(gen)
	cfg := config.DefaultConfig()
	cfg.Source.Timeout = time.Second
	srv.UpdateConfig(config.Reload{Config: cfg})

	timeOut := func() {
		t.Helper()
		done := make(chan *mcpgo.CallToolResult, 1)
		go func() {
			result, _ := srv.handleRandomFloat(context.Background(), makeRequest(nil))
			done <- result
		}()
		deadline := time.Now().Add(2 * time.Second)
		for clk.Waiters() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("draw never armed its timeout")
			}
			time.Sleep(time.Millisecond)
		}
		clk.Advance(time.Second)
		requireErrorKind(t, <-done, kindTimeout)
	}

	timeOut()
	<-gen.Started()
	timeOut()
	timeOut()

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)
	if m["pending_draw"] != true {
		t.Errorf("pending_draw = %v, want true", m["pending_draw"])
	}
	if m["failures"] != float64(3) {
		t.Errorf("failures = %v, want 3", m["failures"])
	}

	gen.Release()
	deadline := time.Now().Add(2 * time.Second)
	for srv.gate.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("gate never released")
		}
		time.Sleep(time.Millisecond)
	}
	// Only the first draw reached the generator.
	if calls := gen.Calls(); calls != 1 {
		t.Errorf("generator calls = %d, want 1", calls)
	}
}

func TestRequestCancellation(t *testing.T) {
	gen := fakegen.NewBlocking(0.5)
	defer gen.Release()
	srv, _ := newTestServer(gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *mcpgo.CallToolResult, 1)
	go func() {
		result, _ := srv.handleRandomUniform(ctx, makeRequest(map[string]any{"a": float64(0), "b": float64(1)}))
		done <- result
	}()
	<-gen.Started()
	cancel()

	select {
	case result := <-done:
		requireErrorKind(t, result, kindTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("handler ignored cancellation")
	}
}

// --- entropy_status ---

func TestHandleEntropyStatus(t *testing.T) {
	gen := fakegen.New(0.1, 0.2)
	srv, clk := newTestServer(gen)

	srv.handleRandomFloat(context.Background(), makeRequest(map[string]any{"count": float64(2)}))
	srv.handleRandomFloat(context.Background(), makeRequest(nil))
	clk.Advance(90 * time.Second)

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)

	if m["source"] != "/dev/fake" {
		t.Errorf("source = %v, want /dev/fake", m["source"])
	}
	if m["kind"] != config.KindDevice {
		t.Errorf("kind = %v, want device", m["kind"])
	}
	if m["timeout"] != "none" {
		t.Errorf("timeout = %v, want none", m["timeout"])
	}
	if m["draws"] != float64(2) {
		t.Errorf("draws = %v, want 2", m["draws"])
	}
	if m["failures"] != float64(1) {
		t.Errorf("failures = %v, want 1", m["failures"])
	}
	if m["last_error"] != fakegen.ErrScriptExhausted.Error() {
		t.Errorf("last_error = %v", m["last_error"])
	}
	if m["uptime_seconds"] != float64(90) {
		t.Errorf("uptime_seconds = %v, want 90", m["uptime_seconds"])
	}
}

func TestHandleEntropyStatusHint(t *testing.T) {
	gen := fakegen.New()
	gen.Err = fmt.Errorf("%w: /dev/fake", entropy.ErrSourceExhausted)
	srv, _ := newTestServer(gen)

	srv.handleRandomFloat(context.Background(), makeRequest(nil))

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)

	if m["last_error"] != "entropy source exhausted: /dev/fake" {
		t.Errorf("last_error = %v", m["last_error"])
	}
	hint, _ := m["hint"].(string)
	if !strings.Contains(hint, "character device") {
		t.Errorf("hint = %q, want device advice", hint)
	}
}

func TestHandleEntropyStatusNoHintWithoutFailure(t *testing.T) {
	srv, _ := newTestServer(fakegen.New(0.5))

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)
	if _, ok := m["hint"]; ok {
		t.Errorf("hint present without a failure: %v", m["hint"])
	}
	if _, ok := m["last_error"]; ok {
		t.Errorf("last_error present without a failure: %v", m["last_error"])
	}
}

// --- config reload ---

func TestUpdateConfig(t *testing.T) {
	srv, _ := newTestServer(fakegen.New())

	cfg := config.DefaultConfig()
	cfg.Source.Timeout = 750 * time.Millisecond
	srv.UpdateConfig(config.Reload{Config: cfg})

	if got := srv.drawTimeout(); got != 750*time.Millisecond {
		t.Errorf("drawTimeout() = %v, want 750ms", got)
	}

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)
	if m["timeout"] != "750ms" {
		t.Errorf("timeout = %v, want 750ms", m["timeout"])
	}
	if _, ok := m["restart_needed"]; ok {
		t.Errorf("restart_needed present without a startup change: %v", m["restart_needed"])
	}
}

func TestUpdateConfig_SourceChangeWaitsForRestart(t *testing.T) {
	srv, _ := newTestServer(fakegen.New())

	cfg := config.DefaultConfig()
	cfg.Source.Kind = config.KindOS
	srv.UpdateConfig(config.Reload{Config: cfg, RestartNeeded: []string{"source"}})

	result, _ := srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	m := resultJSON(t, result)
	// The open source is kept until restart.
	if m["source"] != "/dev/fake" || m["kind"] != config.KindDevice {
		t.Errorf("source = %v, kind = %v, want the startup device", m["source"], m["kind"])
	}
	got, _ := m["restart_needed"].([]any)
	if len(got) != 1 || got[0] != "source" {
		t.Errorf("restart_needed = %v, want [source]", m["restart_needed"])
	}

	// A later reload that matches startup clears it.
	srv.UpdateConfig(config.Reload{Config: config.DefaultConfig()})
	result, _ = srv.handleEntropyStatus(context.Background(), makeRequest(nil))
	if m := resultJSON(t, result); m["restart_needed"] != nil {
		t.Errorf("restart_needed = %v after revert", m["restart_needed"])
	}
}

// --- error classification ---

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", entropy.ErrSourceExhausted), kindSourceExhausted},
		{fmt.Errorf("%w: x: %w", entropy.ErrSourceUnavailable, entropy.ErrClosed), kindSourceUnavailable},
		{fmt.Errorf("%w after 1s", timeout.ErrTimeout), kindTimeout},
		{context.Canceled, kindTimeout},
		{fmt.Errorf("%w: bad", distrib.ErrInvalidArgument), kindInvalidArgument},
		{fmt.Errorf("%w: -1", entropy.ErrInvalidCount), kindInvalidArgument},
		{errors.New("other"), kindInternal},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestToolDefinitions(t *testing.T) {
	tools := []struct {
		tool mcpgo.Tool
		name string
	}{
		{randomFloatTool(), "random_float"},
		{randomUniformTool(), "random_uniform"},
		{randomIntTool(), "random_int"},
		{randomChoiceTool(), "random_choice"},
		{randomShuffleTool(), "random_shuffle"},
		{randomSampleTool(), "random_sample"},
		{randomGaussTool(), "random_gauss"},
		{randomDistributionTool(), "random_distribution"},
		{randomBitsTool(), "random_bits"},
		{entropyStatusTool(), "entropy_status"},
	}
	for _, tt := range tools {
		if tt.tool.Name != tt.name {
			t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.name)
		}
		if tt.tool.Description == "" {
			t.Errorf("tool %q has no description", tt.name)
		}
	}

	if desc := randomDistributionTool().Description; !strings.Contains(desc, "gamma(alpha, beta)") {
		t.Errorf("random_distribution description lacks parameter help: %q", desc)
	}
}
