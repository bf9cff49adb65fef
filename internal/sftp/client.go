// Package sftp reads entropy devices on remote hosts over SFTP.
package sftp

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ErrClosed is returned by OpenDevice after Close.
var ErrClosed = errors.New("sftp client is closed")

// Client opens entropy devices through one SSH connection. The SFTP
// subsystem is started by the first OpenDevice.
type Client struct {
	conn   *ssh.Client
	mu     sync.Mutex
	sc     *sftp.Client
	closed bool
}

// NewClient returns a Client that uses conn.
func NewClient(conn *ssh.Client) *Client {
	return &Client{conn: conn}
}

// sessionOptions turn off concurrent reads. A device ignores offsets, so
// parallel read requests would reorder its bytes and pull more than asked.
var sessionOptions = []sftp.ClientOption{
	sftp.UseConcurrentReads(false),
}

func (c *Client) session() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.sc != nil {
		return c.sc, nil
	}
	if c.conn == nil {
		return nil, fmt.Errorf("ssh connection is nil")
	}

	sc, err := sftp.NewClient(c.conn, sessionOptions...)
	if err != nil {
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}
	c.sc = sc
	return sc, nil
}

// OpenDevice opens the entropy device at path for sequential reads. Reads on
// the returned Device do not hold the client lock, so a blocked device read
// does not stall Close.
func (c *Client) OpenDevice(path string) (*Device, error) {
	sc, err := c.session()
	if err != nil {
		return nil, err
	}

	f, err := sc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open remote device %s: %w", path, err)
	}
	return &Device{path: path, file: f}, nil
}

// Close stops the SFTP subsystem. Devices opened through it stop working.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.sc == nil {
		return nil
	}
	err := c.sc.Close()
	c.sc = nil
	return err
}

// Device is an open remote entropy device.
type Device struct {
	path string
	file *sftp.File
	read atomic.Int64
}

// Path returns the device path on the remote host.
func (d *Device) Path() string { return d.path }

// BytesRead returns how many bytes have been read so far.
func (d *Device) BytesRead() int64 { return d.read.Load() }

func (d *Device) Read(b []byte) (int, error) {
	n, err := d.file.Read(b)
	d.read.Add(int64(n))
	return n, err
}

func (d *Device) Close() error {
	return d.file.Close()
}
