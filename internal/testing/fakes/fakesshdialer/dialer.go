// Package fakesshdialer provides a fake SSH dialer for testing.
package fakesshdialer

import (
	"fmt"
	"sync"
	"time"

	"github.com/acolita/truerand/internal/ports"
	"golang.org/x/crypto/ssh"
)

// DialFunc is the signature of Dialer.DialFunc.
type DialFunc func(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error)

// Dialer is a fake SSH dialer that records calls and delegates to DialFunc.
type Dialer struct {
	mu       sync.Mutex
	DialFunc DialFunc
	calls    []DialCall
}

// DialCall records a call to Dial.
type DialCall struct {
	Addr    string
	Timeout time.Duration
	Config  *ssh.ClientConfig
}

// New creates a new fake Dialer that returns an error by default.
func New() *Dialer {
	return &Dialer{
		DialFunc: func(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error) {
			return nil, fmt.Errorf("fakesshdialer: not configured")
		},
	}
}

// Dial records the call and delegates to DialFunc.
func (d *Dialer) Dial(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error) {
	d.mu.Lock()
	d.calls = append(d.calls, DialCall{Addr: addr, Timeout: timeout, Config: config})
	fn := d.DialFunc
	d.mu.Unlock()
	return fn(addr, timeout, config)
}

// Calls returns all recorded Dial calls.
func (d *Dialer) Calls() []DialCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DialCall(nil), d.calls...)
}

// SetError configures the dialer to always return the given error.
func (d *Dialer) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DialFunc = func(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error) {
		return nil, err
	}
}

// Ensure Dialer implements ports.SSHDialer.
var _ ports.SSHDialer = (*Dialer)(nil)
