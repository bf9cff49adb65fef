// Package realsshdialer provides a real implementation of the SSHDialer port.
package realsshdialer

import (
	"fmt"
	"net"
	"time"

	"github.com/acolita/truerand/internal/ports"
	"golang.org/x/crypto/ssh"
)

// Dialer implements ports.SSHDialer over TCP.
type Dialer struct{}

// New creates a new Dialer.
func New() *Dialer {
	return &Dialer{}
}

// Dial opens a TCP connection to addr and performs the SSH handshake on it.
// The timeout bounds both the TCP connect and the handshake.
func (d *Dialer) Dial(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set handshake deadline: %w", err)
		}
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}

	// Device reads may block for a long time; clear the handshake deadline.
	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("clear deadline: %w", err)
	}

	return ssh.NewClient(c, chans, reqs), nil
}

// Ensure Dialer implements ports.SSHDialer.
var _ ports.SSHDialer = (*Dialer)(nil)
