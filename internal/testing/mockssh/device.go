package mockssh

import (
	"io"
	"sync"
)

// Device is a virtual entropy file. Reads ignore the offset, like a
// character device, and consume the script in order.
type Device struct {
	mu     sync.Mutex
	script []byte
	offset int
	cycle  bool
	block  chan struct{}
}

// NewDevice serves script once, then reports EOF.
func NewDevice(script []byte) *Device {
	return &Device{script: script}
}

// NewCyclingDevice repeats script forever.
func NewCyclingDevice(script []byte) *Device {
	return &Device{script: script, cycle: true}
}

// NewBlockingDevice blocks every read until Release.
func NewBlockingDevice(script []byte) *Device {
	return &Device{script: script, cycle: true, block: make(chan struct{})}
}

// Release unblocks a blocking device.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.block != nil {
		close(d.block)
		d.block = nil
	}
}

// ReadAt fills p from the script. off is ignored.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	block := d.block
	d.mu.Unlock()
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for n < len(p) {
		if d.offset >= len(d.script) && (!d.cycle || len(d.script) == 0) {
			return n, io.EOF
		}
		p[n] = d.script[d.offset%len(d.script)]
		d.offset++
		n++
	}
	return n, nil
}

// Consumed returns the number of bytes served.
func (d *Device) Consumed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}
