package ports

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDialer abstracts SSH connection establishment for testing.
type SSHDialer interface {
	// Dial establishes an SSH connection to addr, giving up after timeout.
	Dial(addr string, timeout time.Duration, config *ssh.ClientConfig) (*ssh.Client, error)
}
