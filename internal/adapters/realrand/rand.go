// Package realrand provides real implementations of the EntropyDevice port.
package realrand

import (
	"crypto/rand"
	"os"

	"github.com/acolita/truerand/internal/ports"
)

// DefaultDevicePath is the blocking kernel entropy device.
const DefaultDevicePath = "/dev/random"

// Opener implements ports.DeviceOpener by opening device nodes read-only.
type Opener struct{}

// NewOpener returns a new real device Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open opens the device node at path for reading.
func (o *Opener) Open(path string) (ports.EntropyDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OS implements ports.EntropyDevice using crypto/rand, which reads from the
// kernel (getrandom on Linux) without a device node.
type OS struct{}

// NewOS returns a new kernel-backed EntropyDevice.
func NewOS() *OS {
	return &OS{}
}

// Read fills b with bytes from the kernel CSPRNG.
func (r *OS) Read(b []byte) (n int, err error) {
	return rand.Read(b)
}

// Close is a no-op; crypto/rand holds no per-caller handle.
func (r *OS) Close() error {
	return nil
}

// Ensure the adapters implement their ports.
var (
	_ ports.DeviceOpener  = (*Opener)(nil)
	_ ports.EntropyDevice = (*OS)(nil)
)
