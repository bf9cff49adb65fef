package mcp

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/testing/fakes/fakeclock"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

func newTestServer(gen ports.RandomGenerator, opts ...ServerOption) (*Server, *fakeclock.Clock) {
	clk := fakeclock.New(time.Unix(1700000000, 0))
	cfg := config.DefaultConfig()
	opts = append([]ServerOption{WithClock(clk), WithSourceName("/dev/fake")}, opts...)
	return NewServer(cfg, gen, opts...), clk
}

func makeRequest(args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	tc, ok := mcpgo.AsTextContent(result.Content[0])
	if !ok {
		return ""
	}
	return tc.Text
}

func resultJSON(t *testing.T, result *mcpgo.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(result))
	}
	text := resultText(result)
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("failed to parse result JSON: %v (text: %s)", err, text)
	}
	return m
}

func requireErrorKind(t *testing.T, result *mcpgo.CallToolResult, kind string) {
	t.Helper()
	if result == nil || !result.IsError {
		t.Fatalf("expected %s error result, got %s", kind, resultText(result))
	}
	if text := resultText(result); !strings.HasPrefix(text, kind+": ") {
		t.Errorf("expected error kind %q, got %q", kind, text)
	}
}
