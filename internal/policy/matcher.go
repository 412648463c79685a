// Package policy evaluates alert policies against event records.
//
// Policies are long-lived configuration owned by the storage layer; the
// matcher compiles a read-only snapshot of them at load time and is a pure
// function of that snapshot per event. Cross-policy order is unspecified -
// policies are independent.
package policy

import (
	"fmt"

	"github.com/mlenstra/shrike/internal/rules"
	"github.com/mlenstra/shrike/internal/types"
)

// Match is one policy that matched an event, with its message template
// already rendered.
type Match struct {
	Policy  *types.AlertPolicy
	Message string
}

// Matcher holds compiled policies.
type Matcher struct {
	policies []compiledPolicy
}

type compiledPolicy struct {
	policy types.AlertPolicy
	group  *rules.CompiledGroup
}

// NewMatcher validates and compiles a policy set. Any invalid policy fails
// the whole load: an invalid policy must never be silently activated, and
// the error is reported back to whoever wrote the definition. Disabled
// policies are validated but never matched.
func NewMatcher(policies []types.AlertPolicy) (*Matcher, error) {
	m := &Matcher{policies: make([]compiledPolicy, 0, len(policies))}

	for _, p := range policies {
		if err := validate(&p); err != nil {
			return nil, err
		}
		group, err := rules.CompileRules(p.Rules, p.MatchAll)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", p.ID, err)
		}
		m.policies = append(m.policies, compiledPolicy{policy: p, group: group})
	}

	return m, nil
}

func validate(p *types.AlertPolicy) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", types.ErrInvalidPolicy)
	}
	if !p.Severity.Valid() {
		return fmt.Errorf("policy %q: severity %q: %w", p.ID, p.Severity, types.ErrInvalidSeverity)
	}
	if p.ThrottleWindow < 0 {
		return fmt.Errorf("policy %q: %w: negative throttle window", p.ID, types.ErrInvalidPolicy)
	}
	if p.ThrottleWindow > 0 && p.MaxAlertsPerWindow <= 0 {
		return fmt.Errorf("policy %q: %w: throttle window requires max_alerts_per_window > 0", p.ID, types.ErrInvalidPolicy)
	}
	return nil
}

// Match evaluates the event against every enabled policy and returns the
// matches with rendered messages. Missing template fields render as empty
// strings, never an error.
func (m *Matcher) Match(rec types.Record) []Match {
	var matches []Match
	for i := range m.policies {
		cp := &m.policies[i]
		if !cp.policy.Enabled {
			continue
		}
		if !rules.Matches(cp.group, rec) {
			continue
		}
		matches = append(matches, Match{
			Policy:  &cp.policy,
			Message: rules.Render(cp.policy.MessageTemplate, rec),
		})
	}
	return matches
}

// Len returns the number of loaded policies, enabled or not.
func (m *Matcher) Len() int {
	return len(m.policies)
}
