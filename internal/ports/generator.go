package ports

// State is the opaque value exchanged by GetState and SetState.
type State = any

// RandomGenerator is the interface shared by every generator that can stand
// in for a seedable pseudo-random generator.
type RandomGenerator interface {
	// Random returns a float64 in [0, 1).
	Random() (float64, error)

	// Seed reseeds the generator. Generators without a seed ignore it.
	Seed(v any)

	// GetState snapshots the generator state.
	GetState() State

	// SetState restores a snapshot taken by GetState.
	SetState(s State)
}
