// Package ssh provides the SSH connection used to reach remote entropy devices.
package ssh

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/acolita/truerand/internal/adapters/realsshdialer"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/sftp"
	"golang.org/x/crypto/ssh"
)

// Client manages one SSH connection to a remote host.
type Client struct {
	conn    *ssh.Client
	config  *ssh.ClientConfig
	host    string
	port    int
	timeout time.Duration
	mu      sync.Mutex

	// SFTP client (lazy initialized)
	sftpClient *sftp.Client

	dialer ports.SSHDialer
}

// ClientOptions configures SSH client behavior.
type ClientOptions struct {
	Host            string
	Port            int
	User            string
	AuthMethods     []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
	Dialer          ports.SSHDialer
}

// NewClient creates a new SSH client with the given options.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if len(opts.AuthMethods) == 0 {
		return nil, fmt.Errorf("at least one auth method is required")
	}
	if opts.HostKeyCallback == nil {
		return nil, fmt.Errorf("host key callback is required")
	}
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	dial := opts.Dialer
	if dial == nil {
		dial = realsshdialer.New()
	}

	return &Client{
		config: &ssh.ClientConfig{
			User:            opts.User,
			Auth:            opts.AuthMethods,
			HostKeyCallback: opts.HostKeyCallback,
			Timeout:         opts.Timeout,
		},
		host:    opts.Host,
		port:    opts.Port,
		timeout: opts.Timeout,
		dialer:  dial,
	}, nil
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Connect establishes the SSH connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := c.dialer.Dial(c.Addr(), c.timeout, c.config)
	if err != nil {
		return fmt.Errorf("ssh dial %s: %w", c.Addr(), err)
	}

	c.conn = conn
	return nil
}

// Close closes the SFTP client, then the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sftpClient != nil {
		c.sftpClient.Close()
		c.sftpClient = nil
	}

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

// SFTPClient returns an SFTP client that reuses the SSH connection.
func (c *Client) SFTPClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	if c.sftpClient == nil {
		c.sftpClient = sftp.NewClient(c.conn)
	}

	return c.sftpClient, nil
}
