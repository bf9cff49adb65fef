package entropy

import (
	"fmt"
	"log/slog"

	"github.com/acolita/truerand/internal/adapters/realfs"
	"github.com/acolita/truerand/internal/ports"
)

// Discover returns the first existing non-directory path matching the
// doublestar patterns, trying patterns in order. A nil fsys uses the real
// filesystem.
func Discover(patterns []string, fsys ports.FileSystem) (string, error) {
	if fsys == nil {
		fsys = realfs.New()
	}

	for _, pattern := range patterns {
		matches, err := fsys.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("device pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fsys.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			slog.Debug("discovered entropy device",
				slog.String("pattern", pattern),
				slog.String("device", m),
			)
			return m, nil
		}
	}

	return "", fmt.Errorf("%w: no device matches %v", ErrSourceUnavailable, patterns)
}
