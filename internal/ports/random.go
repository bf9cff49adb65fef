package ports

// EntropyDevice abstracts a byte-stream entropy supply (a device node, the
// kernel CSPRNG, a remote file) for testing.
type EntropyDevice interface {
	// Read fills b with entropy bytes and returns the number of bytes read.
	Read(b []byte) (n int, err error)

	// Close releases the underlying handle.
	Close() error
}

// DeviceOpener opens an EntropyDevice by path.
type DeviceOpener interface {
	Open(path string) (EntropyDevice, error)
}
