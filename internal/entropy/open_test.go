package entropy

import (
	"errors"
	"testing"

	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/testing/fakes/fakedevice"
	"github.com/acolita/truerand/internal/testing/fakes/fakefs"
)

func TestOpen_Device(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SourceConfig
		devices  []string
		wantPath string
		wantErr  error
	}{
		{
			name:     "explicit path",
			cfg:      config.SourceConfig{Kind: config.KindDevice, Device: "/dev/hwrng"},
			wantPath: "/dev/hwrng",
		},
		{
			name:     "empty kind means device",
			cfg:      config.SourceConfig{Device: "/dev/random"},
			wantPath: "/dev/random",
		},
		{
			name: "discovered",
			cfg: config.SourceConfig{
				Kind:       config.KindDevice,
				Candidates: []string{"/dev/hwrng", "/dev/random"},
			},
			devices:  []string{"/dev/random"},
			wantPath: "/dev/random",
		},
		{
			name: "nothing to discover",
			cfg: config.SourceConfig{
				Kind:       config.KindDevice,
				Candidates: []string{"/dev/hwrng"},
			},
			wantErr: ErrSourceUnavailable,
		},
		{
			name:    "unknown kind",
			cfg:     config.SourceConfig{Kind: "quantum"},
			wantErr: ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fakefs.New()
			for _, d := range tt.devices {
				fsys.AddDevice(d)
			}
			opener := fakedevice.NewOpener()
			for _, p := range []string{"/dev/hwrng", "/dev/random"} {
				opener.Add(p, fakedevice.NewCycling([]byte{0x55}))
			}

			src, err := Open(tt.cfg, WithFileSystem(fsys), WithOpener(opener))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer src.Close()

			if src.Name() != tt.wantPath {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.wantPath)
			}
			if opened := opener.Opened(); len(opened) != 1 || opened[0] != tt.wantPath {
				t.Errorf("opened %v, want exactly [%s]", opened, tt.wantPath)
			}
		})
	}
}

func TestOpen_OS(t *testing.T) {
	dev := fakedevice.NewCycling([]byte{0x0F})

	src, err := Open(config.SourceConfig{Kind: config.KindOS}, WithOSDevice(dev))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if src.Name() != OSSourceName {
		t.Errorf("Name() = %q, want %q", src.Name(), OSSourceName)
	}

	got, err := src.Bits(8)
	if err != nil {
		t.Fatalf("Bits(8) error = %v", err)
	}
	if want := bitsOf("00001111"); !equalBits(got, want) {
		t.Errorf("Bits(8) = %v, want %v", got, want)
	}

	src.Close()
	if !dev.Closed() {
		t.Error("Close() did not close the OS device")
	}
}

func TestOpen_RealOS(t *testing.T) {
	src, err := Open(config.SourceConfig{Kind: config.KindOS})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	got, err := src.Bits(64)
	if err != nil {
		t.Fatalf("Bits(64) error = %v", err)
	}
	if len(got) != 64 {
		t.Errorf("len(Bits(64)) = %d", len(got))
	}
}

func TestOpen_OpenerFailure(t *testing.T) {
	opener := fakedevice.NewOpener()
	opener.Err = errors.New("permission denied")

	_, err := Open(config.SourceConfig{Device: "/dev/hwrng"}, WithOpener(opener))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Open() error = %v, want ErrSourceUnavailable", err)
	}
	if !errors.Is(err, opener.Err) {
		t.Errorf("Open() error = %v, want cause in chain", err)
	}
}
