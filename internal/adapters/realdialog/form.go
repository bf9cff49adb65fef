// Package realdialog implements ports.DialogProvider with charmbracelet/huh
// forms on the controlling terminal.
package realdialog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/acolita/truerand/internal/distrib"
	"github.com/acolita/truerand/internal/ports"
	"github.com/charmbracelet/huh"
)

// Provider shows forms in the terminal the process is attached to.
type Provider struct {
	accessible bool
	in         io.Reader
	out        io.Writer
}

// Option configures a Provider.
type Option func(*Provider)

// WithAccessible switches huh to its line-based accessible mode, which also
// works without a full TTY.
func WithAccessible(on bool) Option {
	return func(p *Provider) { p.accessible = on }
}

// WithIO sets the form's input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(p *Provider) {
		p.in = in
		p.out = out
	}
}

// New returns a new huh dialog provider.
func New(opts ...Option) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type formState struct {
	distribution string
	params       string
	count        string
	confirmed    bool
}

// DrawForm asks for a distribution, its parameters and a count.
func (p *Provider) DrawForm(prefill ports.DrawFormData) (ports.DrawFormData, error) {
	state := &formState{
		distribution: prefill.Distribution,
		params:       formatParams(prefill.Params),
		count:        strconv.Itoa(prefill.Count),
	}
	if state.distribution == "" {
		state.distribution = "random"
	}
	if prefill.Count <= 0 {
		state.count = "1"
	}

	if err := p.run(buildForm(state)); err != nil {
		return prefill, err
	}
	return state.result()
}

// PasswordPrompt asks for a secret without echoing it.
func (p *Provider) PasswordPrompt(title string) ([]byte, error) {
	var secret string
	if err := p.run(huh.NewForm(huh.NewGroup(passwordInput(title, &secret)))); err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

func (p *Provider) run(form *huh.Form) error {
	form = form.WithAccessible(p.accessible)
	if p.in != nil {
		form = form.WithInput(p.in)
	}
	if p.out != nil {
		form = form.WithOutput(p.out)
	}
	return form.Run()
}

func passwordInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Validate(validatePassword).
		Value(value)
}

func validatePassword(text string) error {
	if text == "" {
		return fmt.Errorf("password must not be empty")
	}
	return nil
}

func (s *formState) result() (ports.DrawFormData, error) {
	params, err := parseParams(s.params)
	if err != nil {
		return ports.DrawFormData{}, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(s.count))
	if err != nil {
		return ports.DrawFormData{}, fmt.Errorf("count: %w", err)
	}
	return ports.DrawFormData{
		Distribution: s.distribution,
		Params:       params,
		Count:        count,
		Confirmed:    s.confirmed,
	}, nil
}

func buildForm(s *formState) *huh.Form {
	options := make([]huh.Option[string], 0, len(distrib.Names()))
	for _, name := range distrib.Names() {
		options = append(options, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Distribution").
				Options(options...).
				Value(&s.distribution),

			huh.NewInput().
				Title("Count").
				Description("How many values to draw").
				Validate(validateCount).
				Value(&s.count),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Parameters").
				DescriptionFunc(func() string { return paramHint(s.distribution) }, &s.distribution).
				Validate(func(text string) error { return validateParams(s.distribution, text) }).
				Value(&s.params),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Draw from the entropy source now?").
				Value(&s.confirmed),
		),
	)
}

// paramHint describes the parameters a distribution expects.
func paramHint(name string) string {
	d, err := distrib.Lookup(name)
	if err != nil {
		return err.Error()
	}
	if len(d.Params) == 0 {
		return "No parameters; leave empty"
	}
	return "Comma-separated: " + strings.Join(d.Params, ", ")
}

func validateCount(text string) error {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("count must be a whole number")
	}
	if n < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	return nil
}

func validateParams(name, text string) error {
	d, err := distrib.Lookup(name)
	if err != nil {
		return err
	}
	params, err := parseParams(text)
	if err != nil {
		return err
	}
	if len(params) != len(d.Params) {
		return fmt.Errorf("%s takes %d parameters, got %d", d.Name, len(d.Params), len(params))
	}
	return nil
}

// parseParams reads comma- or space-separated numbers.
func parseParams(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	params := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q is not a number", f)
		}
		params = append(params, v)
	}
	return params, nil
}

func formatParams(params []float64) string {
	parts := make([]string, len(params))
	for i, v := range params {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// Ensure Provider implements ports.DialogProvider.
var _ ports.DialogProvider = (*Provider)(nil)
