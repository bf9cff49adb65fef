package entropy

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acolita/truerand/internal/ports"
	sftpclient "github.com/acolita/truerand/internal/sftp"
	sshclient "github.com/acolita/truerand/internal/ssh"
	"golang.org/x/crypto/ssh"
)

// RemoteOptions describes an entropy device on another host.
type RemoteOptions struct {
	Host          string
	Port          int
	User          string
	KeyPath       string
	KeyPassphrase string
	Password      string
	UseAgent      bool
	Device        string
	Timeout       time.Duration

	// HostKeyCallback overrides the known_hosts lookup when set.
	HostKeyCallback ssh.HostKeyCallback
	KnownHosts      string

	Dialer ports.SSHDialer
}

// remoteDevice is a remote file read over SFTP. Closing it tears down the
// whole connection, since the connection exists only for this file.
type remoteDevice struct {
	file   *sftpclient.Device
	client *sshclient.Client
}

func (d *remoteDevice) Read(b []byte) (int, error) {
	return d.file.Read(b)
}

func (d *remoteDevice) Close() error {
	err := errors.Join(d.file.Close(), d.client.Close())
	slog.Debug("closed remote entropy device",
		slog.String("addr", d.client.Addr()),
		slog.String("device", d.file.Path()),
		slog.Int64("bytes_read", d.file.BytesRead()),
	)
	return err
}

// OpenRemote connects to opts.Host, opens opts.Device over SFTP once and
// wraps it in a DeviceBitSource named user@host:device.
func OpenRemote(opts RemoteOptions) (*DeviceBitSource, error) {
	if opts.Device == "" {
		opts.Device = "/dev/random"
	}
	name := fmt.Sprintf("%s@%s:%s", opts.User, opts.Host, opts.Device)

	methods, err := sshclient.AuthMethods(sshclient.Credentials{
		Host:          opts.Host,
		User:          opts.User,
		KeyPath:       opts.KeyPath,
		KeyPassphrase: opts.KeyPassphrase,
		UseAgent:      opts.UseAgent,
		Password:      opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}

	hostKey := opts.HostKeyCallback
	if hostKey == nil {
		hostKey, err = sshclient.KnownHostsCallback(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
		}
	}

	client, err := sshclient.NewClient(sshclient.ClientOptions{
		Host:            opts.Host,
		Port:            opts.Port,
		User:            opts.User,
		AuthMethods:     methods,
		HostKeyCallback: hostKey,
		Timeout:         opts.Timeout,
		Dialer:          opts.Dialer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}

	sc, err := client.SFTPClient()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}
	file, err := sc.OpenDevice(opts.Device)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}

	slog.Info("opened remote entropy device",
		slog.String("device", name),
		slog.String("addr", client.Addr()),
	)
	return NewDeviceBitSource(&remoteDevice{file: file, client: client}, name), nil
}
