package mcp

const (
	serverName    = "truerand"
	serverVersion = "0.1.0"

	// Upper bounds on a single request.
	maxCount = 10000
	maxBits  = 1 << 16
	maxItems = 10000

	// Failure kinds carried in tool error results.
	kindSourceUnavailable = "source_unavailable"
	kindSourceExhausted   = "source_exhausted"
	kindTimeout           = "timeout"
	kindInvalidArgument   = "invalid_argument"
	kindInternal          = "internal"

	descCount = "Number of values to draw (default: 1)"
	descItems = "The items to pick from"
)
