// Package mockssh provides an in-process SSH server with an SFTP subsystem
// that serves virtual entropy devices, for testing remote sources.
package mockssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Server is a mock SSH server for testing.
type Server struct {
	listener net.Listener
	config   *ssh.ServerConfig
	hostKey  ssh.PublicKey
	addr     string
	users    map[string]string // username -> password
	devices  map[string]*Device
	mu       sync.RWMutex
	done     chan struct{}
	wg       sync.WaitGroup
	conns    map[net.Conn]struct{}
	connsMu  sync.Mutex
}

// Option configures the mock SSH server.
type Option func(*Server)

// WithUser adds a user/password pair for authentication.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.users[username] = password
	}
}

// WithDevice serves dev at path over SFTP.
func WithDevice(path string, dev *Device) Option {
	return func(s *Server) {
		s.devices[path] = dev
	}
}

// New creates and starts a mock SSH server on 127.0.0.1.
func New(opts ...Option) (*Server, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	s := &Server{
		hostKey: signer.PublicKey(),
		users: map[string]string{
			"test": "test",
		},
		devices: make(map[string]*Device),
		done:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			s.mu.RLock()
			expectedPass, ok := s.users[c.User()]
			s.mu.RUnlock()

			if ok && string(password) == expectedPass {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	config.AddHostKey(signer)
	s.config = config

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	s.wg.Add(1)
	go s.acceptLoop()

	slog.Debug("mock SSH server started", slog.String("addr", s.addr))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.addr
}

// Host returns the host part of the address.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.addr)
	return host
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.addr)
	p, _ := strconv.Atoi(port)
	return p
}

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	return s.hostKey
}

// KnownHostsLine returns a known_hosts entry for this server.
func (s *Server) KnownHostsLine() string {
	return knownhosts.Line([]string{knownhosts.Normalize(s.addr)}, s.hostKey)
}

// Close shuts down the server and drops open connections.
func (s *Server) Close() error {
	close(s.done)
	err := s.listener.Close()

	s.connsMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connsMu.Unlock()

	s.mu.RLock()
	for _, dev := range s.devices {
		dev.Release()
	}
	s.mu.RUnlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Debug("accept error", slog.String("error", err.Error()))
				continue
			}
		}

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(netConn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connsMu.Lock()
		delete(s.conns, netConn)
		s.connsMu.Unlock()
		netConn.Close()
	}()

	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		slog.Debug("SSH handshake failed", slog.String("error", err.Error()))
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			slog.Debug("channel accept failed", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go s.handleChannel(channel, requests)
	}
}

func (s *Server) handleChannel(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer s.wg.Done()
	defer channel.Close()

	for req := range requests {
		if req.Type != "subsystem" || parseSubsystem(req.Payload) != "sftp" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}
		if req.WantReply {
			req.Reply(true, nil)
		}

		go ssh.DiscardRequests(requests)
		rs := sftp.NewRequestServer(channel, sftp.Handlers{
			FileGet:  s,
			FilePut:  s,
			FileCmd:  s,
			FileList: s,
		})
		if err := rs.Serve(); err != nil && err != io.EOF {
			slog.Debug("sftp server stopped", slog.String("error", err.Error()))
		}
		rs.Close()
		return
	}
}

// parseSubsystem decodes the SSH string in a subsystem request payload.
func parseSubsystem(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload[:4])
	if int(n) > len(payload)-4 {
		return ""
	}
	return string(payload[4 : 4+n])
}

// Fileread serves registered devices.
func (s *Server) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dev, ok := s.devices[r.Filepath]
	if !ok {
		return nil, os.ErrNotExist
	}
	return dev, nil
}

// Filewrite rejects every write.
func (s *Server) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	return nil, os.ErrPermission
}

// Filecmd rejects every command.
func (s *Server) Filecmd(r *sftp.Request) error {
	return os.ErrPermission
}

// Filelist reports registered devices only.
func (s *Server) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	return nil, os.ErrNotExist
}
