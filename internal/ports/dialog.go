package ports

// DrawFormData holds the result of the interactive draw form.
type DrawFormData struct {
	Distribution string
	Params       []float64
	Count        int
	Confirmed    bool
}

// DialogProvider abstracts interactive user dialogs.
// Implementations may use TUI forms or test fakes.
type DialogProvider interface {
	// DrawForm asks the user which distribution to draw from and how often.
	// Returns the final form data with Confirmed=true if the user accepted.
	DrawForm(prefill DrawFormData) (DrawFormData, error)

	// PasswordPrompt reads a secret without echoing it.
	PasswordPrompt(title string) ([]byte, error)
}
