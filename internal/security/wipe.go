package security

// WipeBytes zeroes a byte slice holding a secret.
func WipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// SecureBytes wraps a byte slice and ensures it gets wiped when done.
type SecureBytes struct {
	data []byte
}

// NewSecureBytes creates a new SecureBytes holding a copy of data.
func NewSecureBytes(data []byte) *SecureBytes {
	d := make([]byte, len(data))
	copy(d, data)
	return &SecureBytes{data: d}
}

// String returns the secret as a string. The copy made here cannot be wiped.
func (sb *SecureBytes) String() string {
	return string(sb.data)
}

// Len returns the length of the data.
func (sb *SecureBytes) Len() int {
	return len(sb.data)
}

// Wipe zeroes the data and drops it.
func (sb *SecureBytes) Wipe() {
	WipeBytes(sb.data)
	sb.data = nil
}
