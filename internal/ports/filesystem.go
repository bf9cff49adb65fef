package ports

import "io/fs"

// FileSystem abstracts file operations for testing.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// Stat returns file info for the named file.
	Stat(name string) (fs.FileInfo, error)

	// Glob returns the names of all files matching a doublestar pattern.
	Glob(pattern string) ([]string, error)

	// UserHomeDir returns the current user's home directory.
	UserHomeDir() (string, error)

	// Getenv retrieves the value of the environment variable named by the key.
	Getenv(key string) string
}
