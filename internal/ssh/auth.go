package ssh

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Credentials describe how to log in to an entropy host.
type Credentials struct {
	Host          string
	User          string
	KeyPath       string // private key file; may start with ~/
	KeyPassphrase string
	UseAgent      bool
	Password      string // from the keyring or password_env
}

// Target returns user@host.
func (c Credentials) Target() string {
	return c.User + "@" + c.Host
}

// defaultKeys are tried in order when no key, agent or password is configured.
var defaultKeys = []string{
	"~/.ssh/id_ed25519",
	"~/.ssh/id_ecdsa",
	"~/.ssh/id_rsa",
}

// AuthMethods returns the SSH auth methods for c in the order the server is
// offered them: agent, configured key, then password. A default key is used
// only when nothing else is configured.
func AuthMethods(c Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if c.UseAgent {
		signers, err := agentSigners()
		if err != nil {
			slog.Debug("ssh agent unavailable",
				slog.String("target", c.Target()),
				slog.String("error", err.Error()),
			)
		} else {
			methods = append(methods, signers)
		}
	}

	if c.KeyPath != "" {
		keyAuth, err := keyFileAuth(c.KeyPath, c.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("key %s for %s: %w", c.KeyPath, c.Target(), err)
		}
		methods = append(methods, keyAuth)
	}

	if c.Password != "" {
		methods = append(methods, PasswordAuth(c.Password), KeyboardInteractiveAuth(c.Password))
	}

	if len(methods) == 0 {
		for _, key := range defaultKeys {
			keyAuth, err := keyFileAuth(key, c.KeyPassphrase)
			if err != nil {
				continue
			}
			slog.Debug("using default ssh key",
				slog.String("target", c.Target()),
				slog.String("key_file", key),
			)
			methods = append(methods, keyAuth)
			break
		}
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication methods available for %s: set key_path, use_agent, password_env or use_keyring", c.Target())
	}
	return methods, nil
}

func agentSigners() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func keyFileAuth(path, passphrase string) (ssh.AuthMethod, error) {
	pem, err := os.ReadFile(expandPath(path))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

// KnownHostsCallback verifies entropy hosts against a known_hosts file. An
// unattended client has nobody to confirm a new key with, so both a missing
// file and an unlisted host are errors. Rejections name the host and the file.
func KnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	expanded := expandPath(path)

	check, err := knownhosts.New(expanded)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) == 0 {
			return fmt.Errorf("%s is not listed in %s: %w", hostname, expanded, err)
		}
		return fmt.Errorf("%s does not match its entry in %s: %w", hostname, expanded, err)
	}, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// PasswordAuth returns a password auth method.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// KeyboardInteractiveAuth answers every keyboard-interactive question with
// password.
func KeyboardInteractiveAuth(password string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	})
}
