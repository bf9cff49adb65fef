// Package fakedevice provides a scripted EntropyDevice for testing.
package fakedevice

import (
	"errors"
	"io"
	"sync"

	"github.com/acolita/truerand/internal/ports"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("fakedevice: closed")

// Device is a fake entropy device that replays a byte script.
// Once the script is used up, Read returns EndErr (io.EOF by default),
// unless the device was created with NewCycling.
type Device struct {
	mu       sync.Mutex
	script   []byte
	offset   int
	cycle    bool
	closed   bool
	reads    int
	closes   int
	block    chan struct{}
	zeroRead bool

	// EndErr is returned once the script is exhausted.
	EndErr error
	// FailAfter makes Read fail with FailErr after this many bytes (-1 disables).
	FailAfter int
	// FailErr is the error returned once FailAfter bytes were served.
	FailErr error
}

// New creates a device that serves script once, then returns io.EOF.
func New(script []byte) *Device {
	return &Device{script: script, EndErr: io.EOF, FailAfter: -1}
}

// NewCycling creates a device that repeats script forever.
func NewCycling(script []byte) *Device {
	d := New(script)
	d.cycle = true
	return d
}

// NewFailing creates a device whose every Read fails with err.
func NewFailing(err error) *Device {
	d := New(nil)
	d.FailAfter = 0
	d.FailErr = err
	return d
}

// NewZeroRead creates a device whose Read returns (0, nil).
func NewZeroRead() *Device {
	d := New(nil)
	d.zeroRead = true
	return d
}

// NewBlocking creates a device whose Read blocks until Release or Close.
func NewBlocking(script []byte) *Device {
	d := NewCycling(script)
	d.block = make(chan struct{})
	return d
}

// Release unblocks every pending and future Read of a blocking device.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.block != nil {
		close(d.block)
		d.block = nil
	}
}

// Read serves the next bytes of the script.
func (d *Device) Read(b []byte) (int, error) {
	d.mu.Lock()
	block := d.block
	d.mu.Unlock()
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.reads++
	if d.closed {
		return 0, ErrClosed
	}
	if d.zeroRead {
		return 0, nil
	}

	n := 0
	for n < len(b) {
		if d.FailAfter >= 0 && d.offset >= d.FailAfter {
			return n, d.FailErr
		}
		if d.offset >= len(d.script) {
			if !d.cycle || len(d.script) == 0 {
				return n, d.EndErr
			}
		}
		b[n] = d.script[d.offset%len(d.script)]
		d.offset++
		n++
	}
	return n, nil
}

// Close marks the device closed and unblocks pending reads.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	d.closed = true
	if d.block != nil {
		close(d.block)
		d.block = nil
	}
	return nil
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// CloseCount returns how many times Close was called.
func (d *Device) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Reads returns the number of Read calls.
func (d *Device) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Consumed returns the number of script bytes served so far.
func (d *Device) Consumed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// Opener is a fake DeviceOpener backed by a path to device map.
type Opener struct {
	mu      sync.Mutex
	devices map[string]*Device
	opened  []string
	// Err, when set, is returned by every Open.
	Err error
}

// NewOpener creates an opener with no devices.
func NewOpener() *Opener {
	return &Opener{devices: make(map[string]*Device)}
}

// Add registers dev under path.
func (o *Opener) Add(path string, dev *Device) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.devices[path] = dev
}

// Open returns the device registered under path.
func (o *Opener) Open(path string) (ports.EntropyDevice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, path)
	if o.Err != nil {
		return nil, o.Err
	}
	dev, ok := o.devices[path]
	if !ok {
		return nil, &pathError{path: path}
	}
	return dev, nil
}

// Opened returns the paths passed to Open, in order.
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

type pathError struct{ path string }

func (e *pathError) Error() string { return "open " + e.path + ": no such device" }

// Ensure the fakes implement their ports.
var (
	_ ports.EntropyDevice = (*Device)(nil)
	_ ports.DeviceOpener  = (*Opener)(nil)
)
