// Package recovery turns entropy source failures into fix suggestions.
package recovery

import (
	"errors"
	"regexp"
	"sort"

	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/timeout"
)

// Suggestion represents a recovery suggestion for a source failure.
type Suggestion struct {
	Error       string   // Description of the detected problem
	Category    string   // permission, device, ssh, network, config or latency
	Commands    []string // Suggested shell commands or config snippets
	Explanation string   // What is likely wrong
	Confidence  float64  // Confidence that this suggestion will help
	Risky       bool     // If true, user should review before running
}

// Analyzer matches errors against known failure patterns.
type Analyzer struct {
	rules []recoveryRule
}

// A rule fires when its sentinel is in the error chain, its pattern
// matches the error text, or both when both are set.
type recoveryRule struct {
	name     string
	sentinel error
	pattern  *regexp.Regexp
	suggest  func(matches []string) *Suggestion
}

// NewAnalyzer creates a new analyzer with default rules.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		rules: defaultRules(),
	}
}

// Analyze returns suggestions for err, best first. A nil error yields none.
func (a *Analyzer) Analyze(err error) []*Suggestion {
	if err == nil {
		return nil
	}
	text := err.Error()

	var suggestions []*Suggestion
	for _, rule := range a.rules {
		if rule.sentinel != nil && !errors.Is(err, rule.sentinel) {
			continue
		}
		var matches []string
		if rule.pattern != nil {
			if matches = rule.pattern.FindStringSubmatch(text); matches == nil {
				continue
			}
		}
		if s := rule.suggest(matches); s != nil {
			suggestions = append(suggestions, s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

// Best returns the most confident suggestion, or nil.
func (a *Analyzer) Best(err error) *Suggestion {
	if s := a.Analyze(err); len(s) > 0 {
		return s[0]
	}
	return nil
}

func group(matches []string, i int) string {
	if i < len(matches) {
		return matches[i]
	}
	return ""
}

func defaultRules() []recoveryRule {
	return []recoveryRule{
		{
			name:    "device_permission_denied",
			pattern: regexp.MustCompile(`open (\S+): permission denied`),
			suggest: func(m []string) *Suggestion {
				path := group(m, 1)
				return &Suggestion{
					Error:       "Permission denied on " + path,
					Category:    "permission",
					Commands:    []string{"ls -l " + path, "sudo usermod -aG $(stat -c %G " + path + ") $USER"},
					Explanation: "The device is readable only by its owning group. Join that group and log in again.",
					Confidence:  0.85,
					Risky:       true,
				}
			},
		},
		{
			name:    "device_missing",
			pattern: regexp.MustCompile(`open (\S+): no such file or directory`),
			suggest: func(m []string) *Suggestion {
				return &Suggestion{
					Error:       "Device not found: " + group(m, 1),
					Category:    "device",
					Commands:    []string{"ls -l /dev/hwrng /dev/random /dev/tpmrm*", "source:\n  device: \"\"   # discover"},
					Explanation: "The configured path does not exist. Leave source.device empty to discover a device, or fix the path.",
					Confidence:  0.8,
				}
			},
		},
		{
			name:     "no_device_matches",
			sentinel: entropy.ErrSourceUnavailable,
			pattern:  regexp.MustCompile(`no device matches`),
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "No entropy device discovered",
					Category:    "device",
					Commands:    []string{"sudo modprobe rng-core", "source:\n  kind: os"},
					Explanation: "None of the candidate patterns matched a device node. Load a hardware RNG driver, add a candidate pattern, or fall back to the kernel source.",
					Confidence:  0.75,
				}
			},
		},
		{
			name:     "device_exhausted",
			sentinel: entropy.ErrSourceExhausted,
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "Entropy source reached end of stream",
					Category:    "device",
					Commands:    []string{"source:\n  device: /dev/random"},
					Explanation: "The source is a finite file or a remote stream that ended. Point it at a character device.",
					Confidence:  0.7,
				}
			},
		},
		{
			name:    "ssh_auth_failed",
			pattern: regexp.MustCompile(`unable to authenticate|no authentication methods available`),
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "SSH authentication failed",
					Category:    "ssh",
					Commands:    []string{"ssh-add -l"},
					Explanation: "Check source.remote.key_path, the agent, or the password in the keyring or source.remote.password_env.",
					Confidence:  0.8,
				}
			},
		},
		{
			name:    "ssh_host_key_unknown",
			pattern: regexp.MustCompile(`knownhosts: key is unknown|key mismatch`),
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "Remote host key not trusted",
					Category:    "ssh",
					Commands:    []string{"ssh-keyscan -p <port> <host> >> ~/.ssh/known_hosts"},
					Explanation: "The remote host key is missing from known_hosts or has changed. Verify the fingerprint before adding it.",
					Confidence:  0.85,
					Risky:       true,
				}
			},
		},
		{
			name:    "known_hosts_missing",
			pattern: regexp.MustCompile(`known_hosts: open (\S+): no such file`),
			suggest: func(m []string) *Suggestion {
				return &Suggestion{
					Error:       "known_hosts file not found: " + group(m, 1),
					Category:    "config",
					Commands:    []string{"source:\n  remote:\n    known_hosts: ~/.ssh/known_hosts"},
					Explanation: "Set source.remote.known_hosts to an existing file.",
					Confidence:  0.9,
				}
			},
		},
		{
			name:    "network_unreachable",
			pattern: regexp.MustCompile(`(?i)connection refused|no route to host|i/o timeout|no such host`),
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "Remote host unreachable",
					Category:    "network",
					Explanation: "Check source.remote.host and port and that sshd is running there.",
					Confidence:  0.6,
				}
			},
		},
		{
			name:     "draw_timeout",
			sentinel: timeout.ErrTimeout,
			suggest: func(_ []string) *Suggestion {
				return &Suggestion{
					Error:       "Draw timed out",
					Category:    "latency",
					Commands:    []string{"cat /proc/sys/kernel/random/entropy_avail"},
					Explanation: "The device blocked longer than source.timeout. Raise the timeout or use a faster device such as /dev/hwrng.",
					Confidence:  0.6,
				}
			},
		},
	}
}
