// Package fakedialog provides a test fake for ports.DialogProvider.
package fakedialog

import "github.com/acolita/truerand/internal/ports"

// Provider is a controllable fake DialogProvider for testing.
type Provider struct {
	// Result is the form data returned by DrawForm.
	Result ports.DrawFormData
	// Err is the error returned by DrawForm.
	Err error
	// Called tracks whether DrawForm was invoked.
	Called bool
	// ReceivedPrefill captures the prefill data passed to DrawForm.
	ReceivedPrefill ports.DrawFormData

	// Password is returned by PasswordPrompt.
	Password []byte
	// PasswordErr is the error returned by PasswordPrompt.
	PasswordErr error
	// PasswordTitles records every PasswordPrompt title.
	PasswordTitles []string
}

// New returns a new fake dialog provider.
func New() *Provider {
	return &Provider{}
}

// DrawForm returns the pre-configured Result and Err.
func (p *Provider) DrawForm(prefill ports.DrawFormData) (ports.DrawFormData, error) {
	p.Called = true
	p.ReceivedPrefill = prefill
	if p.Err != nil {
		return prefill, p.Err
	}
	return p.Result, nil
}

// PasswordPrompt returns a copy of Password, or PasswordErr.
func (p *Provider) PasswordPrompt(title string) ([]byte, error) {
	p.PasswordTitles = append(p.PasswordTitles, title)
	if p.PasswordErr != nil {
		return nil, p.PasswordErr
	}
	return append([]byte(nil), p.Password...), nil
}

// Ensure Provider implements ports.DialogProvider.
var _ ports.DialogProvider = (*Provider)(nil)
