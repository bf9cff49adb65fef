// truerand prints random numbers drawn from a hardware or kernel entropy
// source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/acolita/truerand/internal/adapters/realdialog"
	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/generator"
	"github.com/acolita/truerand/internal/logging"
	"github.com/acolita/truerand/internal/ports"
	"github.com/acolita/truerand/internal/recovery"
	"github.com/acolita/truerand/internal/security"
	"github.com/acolita/truerand/internal/timeout"
	"github.com/charmbracelet/huh"
)

// Version information - set at build time.
var Version = "0.1.0"

func main() {
	var (
		configPath  string
		kind        string
		device      string
		dist        string
		params      string
		count       int
		drawTimeout string
		interactive bool
		storePW     bool
		forgetPW    bool
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&kind, "source", "", "Source kind: 'device', 'os' or 'remote' (overrides config)")
	flag.StringVar(&device, "device", "", "Entropy device path (overrides config)")
	flag.StringVar(&dist, "dist", "random", "Distribution: "+strings.Join(distrib.Names(), ", "))
	flag.StringVar(&params, "params", "", "Comma-separated distribution parameters")
	flag.IntVar(&count, "n", 1, "Number of values to draw")
	flag.StringVar(&drawTimeout, "timeout", "", "Per-draw timeout, e.g. 2s (overrides config)")
	flag.BoolVar(&interactive, "interactive", false, "Choose the distribution in a form")
	flag.BoolVar(&storePW, "store-password", false, "Prompt for the remote host's SSH password and save it in the OS keyring")
	flag.BoolVar(&forgetPW, "forget-password", false, "Remove the remote host's SSH password from the OS keyring")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("truerand version %s\n", Version)
		os.Exit(0)
	}

	if configPath == "" {
		if p := config.DefaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				configPath = p
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if kind != "" {
		cfg.Source.Kind = kind
	}
	if device != "" {
		cfg.Source.Device = device
	}
	if drawTimeout != "" {
		if cfg.Source.Timeout, err = time.ParseDuration(drawTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -timeout: %v\n", err)
			os.Exit(2)
		}
	}
	if debug {
		cfg.Logging.Level = "debug"
	} else if configPath == "" {
		cfg.Logging.Level = "warn"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Sanitize)

	if storePW || forgetPW {
		if storePW && forgetPW {
			fmt.Fprintln(os.Stderr, "-store-password and -forget-password are mutually exclusive")
			os.Exit(2)
		}
		a := &app{dialog: realdialog.New(), out: os.Stdout}
		store := security.NewKeyringStore()
		if storePW {
			err = a.storePassword(store, cfg.Source.Remote)
		} else {
			err = a.forgetPassword(store, cfg.Source.Remote)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !cfg.Source.UsesKeyring() {
			fmt.Fprintln(os.Stderr, "Note: set source.kind: remote and source.remote.use_keyring: true to use the keyring when drawing.")
		}
		return
	}

	values, err := parseParams(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -params: %v\n", err)
		os.Exit(2)
	}

	src, err := entropy.Open(cfg.Source, openOptions(cfg.Source, newKeyringStore)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening entropy source: %v\n", err)
		printHints(os.Stderr, err)
		os.Exit(1)
	}
	gen := generator.New(src)
	defer gen.Close()

	slog.Debug("entropy source opened", slog.String("source", src.Name()))

	a := &app{
		gen: timeout.Wrap(gen, cfg.Source.Timeout, nil),
		out: os.Stdout,
	}
	req := ports.DrawFormData{Distribution: dist, Params: values, Count: count, Confirmed: true}

	if interactive {
		a.dialog = realdialog.New()
		err = a.interactive(req)
	} else {
		err = a.draw(req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printHints(os.Stderr, err)
		gen.Close()
		os.Exit(1)
	}
}

// app draws values and writes them one per line.
type app struct {
	gen    ports.RandomGenerator
	dialog ports.DialogProvider
	out    io.Writer
}

func (a *app) draw(req ports.DrawFormData) error {
	if req.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", req.Count)
	}
	d, err := distrib.Lookup(req.Distribution)
	if err != nil {
		return err
	}
	for i := 0; i < req.Count; i++ {
		v, err := d.Draw(a.gen, req.Params)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return nil
}

func (a *app) interactive(prefill ports.DrawFormData) error {
	req, err := a.dialog.DrawForm(prefill)
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("form: %w", err)
	}
	if !req.Confirmed {
		slog.Info("draw cancelled")
		return nil
	}
	return a.draw(req)
}

func newKeyringStore() ports.SecretStore {
	return security.NewKeyringStore()
}

// openOptions returns the entropy.Open options for src. The keyring is only
// opened for remote sources that read their password from it.
func openOptions(src config.SourceConfig, keyring func() ports.SecretStore) []entropy.OpenOption {
	if !src.UsesKeyring() {
		return nil
	}
	return []entropy.OpenOption{entropy.WithSecretStore(keyring())}
}

// remoteAccount returns the configured remote host and user.
func remoteAccount(rc config.RemoteConfig) (host, user string, err error) {
	if rc.Host == "" || rc.User == "" {
		return "", "", fmt.Errorf("source.remote.host and source.remote.user must be set in the config")
	}
	return rc.Host, rc.User, nil
}

// storePassword reads the SSH password for the configured remote host and
// saves it in store.
func (a *app) storePassword(store ports.CredentialStore, rc config.RemoteConfig) error {
	host, user, err := remoteAccount(rc)
	if err != nil {
		return err
	}

	pw, err := a.dialog.PasswordPrompt(fmt.Sprintf("SSH password for %s@%s", user, host))
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("password prompt: %w", err)
	}
	defer security.WipeBytes(pw)

	if err := store.StoreRemotePassword(host, user, pw); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Stored password for %s@%s in the keyring\n", user, host)
	return nil
}

// forgetPassword removes the stored SSH password for the configured remote
// host.
func (a *app) forgetPassword(store ports.CredentialStore, rc config.RemoteConfig) error {
	host, user, err := remoteAccount(rc)
	if err != nil {
		return err
	}

	existed, err := store.DeleteRemotePassword(host, user)
	if err != nil {
		return err
	}
	if !existed {
		fmt.Fprintf(a.out, "No password stored for %s@%s\n", user, host)
		return nil
	}
	fmt.Fprintf(a.out, "Removed password for %s@%s from the keyring\n", user, host)
	return nil
}

// printHints writes recovery suggestions for err, if any.
func printHints(w io.Writer, err error) {
	for _, s := range recovery.NewAnalyzer().Analyze(err) {
		fmt.Fprintf(w, "\nHint: %s\n  %s\n", s.Error, s.Explanation)
		for _, cmd := range s.Commands {
			fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(cmd, "\n", "\n    "))
		}
		if s.Risky {
			fmt.Fprintln(w, "  Review these before running them.")
		}
	}
}

func parseParams(text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	params := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return params, nil
}
