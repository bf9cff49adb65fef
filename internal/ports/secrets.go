package ports

// SecretStore looks up stored credentials for remote entropy hosts.
type SecretStore interface {
	// RemotePassword returns the stored password for user@host, or nil
	// if none is stored.
	RemotePassword(host, user string) ([]byte, error)
}

// CredentialStore is a SecretStore that can also be written to.
type CredentialStore interface {
	SecretStore

	// StoreRemotePassword saves the password for user@host.
	StoreRemotePassword(host, user string, password []byte) error

	// DeleteRemotePassword removes the password for user@host and reports
	// whether one was stored.
	DeleteRemotePassword(host, user string) (bool, error)
}
