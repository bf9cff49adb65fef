package ssh

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/acolita/truerand/internal/testing/fakes/fakesshdialer"
	gossh "golang.org/x/crypto/ssh"
)

func validOptions() ClientOptions {
	return ClientOptions{
		Host:            "rng.example.com",
		User:            "rng",
		AuthMethods:     []gossh.AuthMethod{PasswordAuth("pw")},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientOptions)
		wantErr string
	}{
		{"missing host", func(o *ClientOptions) { o.Host = "" }, "host is required"},
		{"missing user", func(o *ClientOptions) { o.User = "" }, "user is required"},
		{"no auth", func(o *ClientOptions) { o.AuthMethods = nil }, "auth method"},
		{"no host key callback", func(o *ClientOptions) { o.HostKeyCallback = nil }, "host key callback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			_, err := NewClient(opts)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewClient() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(validOptions())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Addr() != "rng.example.com:22" {
		t.Errorf("Addr() = %q, want port 22", c.Addr())
	}
	if c.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", c.timeout)
	}
	if c.config.User != "rng" {
		t.Errorf("config.User = %q", c.config.User)
	}
}

func TestClient_ConnectDialError(t *testing.T) {
	dialer := fakesshdialer.New()
	dialer.SetError(errors.New("connection refused"))

	opts := validOptions()
	opts.Port = 2222
	opts.Timeout = 5 * time.Second
	opts.Dialer = dialer
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	err = c.Connect()
	if err == nil || !strings.Contains(err.Error(), "ssh dial rng.example.com:2222") {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, err := c.SFTPClient(); err == nil {
		t.Error("SFTPClient() should fail after a failed dial")
	}

	calls := dialer.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d dial calls, want 1", len(calls))
	}
	if calls[0].Timeout != 5*time.Second || calls[0].Config.User != "rng" {
		t.Errorf("dial call = %+v", calls[0])
	}
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient(validOptions())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.SFTPClient(); err == nil {
		t.Error("SFTPClient() should fail before Connect")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}
