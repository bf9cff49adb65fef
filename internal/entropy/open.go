package entropy

import (
	"fmt"
	"log/slog"

	"github.com/acolita/truerand/internal/adapters/realfs"
	"github.com/acolita/truerand/internal/adapters/realrand"
	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/security"
)

// OSSourceName labels the kernel CSPRNG source.
const OSSourceName = "os:getrandom"

// OpenOption configures Open.
type OpenOption func(*openDeps)

type openDeps struct {
	fs      ports.FileSystem
	opener  ports.DeviceOpener
	dialer  ports.SSHDialer
	secrets ports.SecretStore
	osDev   ports.EntropyDevice
}

// WithFileSystem sets the filesystem used for discovery and env lookups.
func WithFileSystem(fs ports.FileSystem) OpenOption {
	return func(d *openDeps) { d.fs = fs }
}

// WithOpener sets the device opener.
func WithOpener(o ports.DeviceOpener) OpenOption {
	return func(d *openDeps) { d.opener = o }
}

// WithSSHDialer sets the dialer used for remote sources.
func WithSSHDialer(dialer ports.SSHDialer) OpenOption {
	return func(d *openDeps) { d.dialer = dialer }
}

// WithSecretStore sets where remote passwords are looked up.
func WithSecretStore(s ports.SecretStore) OpenOption {
	return func(d *openDeps) { d.secrets = s }
}

// WithOSDevice replaces the kernel CSPRNG used by the "os" kind.
func WithOSDevice(dev ports.EntropyDevice) OpenOption {
	return func(d *openDeps) { d.osDev = dev }
}

// Open builds the bit source selected by cfg. The source is opened exactly
// once; callers own it and must Close it.
func Open(cfg config.SourceConfig, opts ...OpenOption) (*DeviceBitSource, error) {
	deps := &openDeps{}
	for _, opt := range opts {
		opt(deps)
	}
	if deps.fs == nil {
		deps.fs = realfs.New()
	}

	switch cfg.Kind {
	case config.KindDevice, "":
		path := cfg.Device
		if path == "" {
			var err error
			path, err = Discover(cfg.Candidates, deps.fs)
			if err != nil {
				return nil, err
			}
		}
		return OpenDevice(path, deps.opener)

	case config.KindOS:
		dev := deps.osDev
		if dev == nil {
			dev = realrand.NewOS()
		}
		slog.Debug("using kernel entropy source")
		return NewDeviceBitSource(dev, OSSourceName), nil

	case config.KindRemote:
		return openRemoteFromConfig(cfg.Remote, deps)

	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", ErrSourceUnavailable, cfg.Kind)
	}
}

func openRemoteFromConfig(rc config.RemoteConfig, deps *openDeps) (*DeviceBitSource, error) {
	password := remotePassword(rc, deps)
	defer password.Wipe()

	return OpenRemote(RemoteOptions{
		Host:          rc.Host,
		Port:          rc.Port,
		User:          rc.User,
		KeyPath:       rc.KeyPath,
		KeyPassphrase: envValue(deps.fs, rc.PassphraseEnv),
		Password:      password.String(),
		UseAgent:      rc.UseAgent,
		Device:        rc.Device,
		Timeout:       rc.ConnectTimeout,
		KnownHosts:    rc.KnownHosts,
		Dialer:        deps.dialer,
	})
}

// remotePassword prefers the keyring entry and falls back to the env var.
func remotePassword(rc config.RemoteConfig, deps *openDeps) *security.SecureBytes {
	if rc.UseKeyring && deps.secrets != nil {
		pw, err := deps.secrets.RemotePassword(rc.Host, rc.User)
		if err != nil {
			slog.Warn("keyring lookup failed",
				slog.String("host", rc.Host),
				slog.String("error", err.Error()),
			)
		} else if pw != nil {
			defer security.WipeBytes(pw)
			return security.NewSecureBytes(pw)
		}
	}
	return security.NewSecureBytes([]byte(envValue(deps.fs, rc.PasswordEnv)))
}

func envValue(fs ports.FileSystem, key string) string {
	if key == "" {
		return ""
	}
	return fs.Getenv(key)
}
