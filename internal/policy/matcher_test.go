package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/mlenstra/shrike/internal/types"
)

func validPolicy(id string) types.AlertPolicy {
	return types.AlertPolicy{
		ID:       types.PolicyID(id),
		Name:     id,
		Enabled:  true,
		MatchAll: true,
		Severity: types.SeverityError,
		Rules: types.ConditionGroup{
			Conditions: []types.Condition{{Field: "severity", Operator: "eq", Value: "error"}},
		},
		MessageTemplate: "error on {host}",
	}
}

func TestNewMatcher_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.AlertPolicy)
		wantErr error
	}{
		{
			name:    "missing id",
			mutate:  func(p *types.AlertPolicy) { p.ID = "" },
			wantErr: types.ErrInvalidPolicy,
		},
		{
			name:    "invalid severity",
			mutate:  func(p *types.AlertPolicy) { p.Severity = "fatal" },
			wantErr: types.ErrInvalidSeverity,
		},
		{
			name:    "negative throttle window",
			mutate:  func(p *types.AlertPolicy) { p.ThrottleWindow = types.Duration(-time.Minute) },
			wantErr: types.ErrInvalidPolicy,
		},
		{
			name: "window without max alerts",
			mutate: func(p *types.AlertPolicy) {
				p.ThrottleWindow = types.Duration(time.Minute)
				p.MaxAlertsPerWindow = 0
			},
			wantErr: types.ErrInvalidPolicy,
		},
		{
			name: "invalid rules",
			mutate: func(p *types.AlertPolicy) {
				p.Rules = types.ConditionGroup{
					Conditions: []types.Condition{{Field: "a", Operator: "matches", Value: "x"}},
				}
			},
			wantErr: types.ErrUnknownOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPolicy("pol-1")
			tt.mutate(&p)
			if _, err := NewMatcher([]types.AlertPolicy{p}); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewMatcher() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMatcher_DisabledPoliciesStillValidated(t *testing.T) {
	p := validPolicy("pol-1")
	p.Enabled = false
	p.Severity = "fatal"

	if _, err := NewMatcher([]types.AlertPolicy{p}); !errors.Is(err, types.ErrInvalidSeverity) {
		t.Errorf("NewMatcher() error = %v, want ErrInvalidSeverity for disabled policy", err)
	}
}

func TestMatch(t *testing.T) {
	errPolicy := validPolicy("pol-errors")
	disabled := validPolicy("pol-disabled")
	disabled.Enabled = false

	anyOf := validPolicy("pol-any")
	anyOf.MatchAll = false
	anyOf.Rules = types.ConditionGroup{
		Conditions: []types.Condition{
			{Field: "severity", Operator: "eq", Value: "critical"},
			{Field: "priority", Operator: "gt", Value: float64(5)},
		},
	}
	anyOf.MessageTemplate = "priority {priority}"

	m, err := NewMatcher([]types.AlertPolicy{errPolicy, disabled, anyOf})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3 including disabled", m.Len())
	}

	matches := m.Match(types.Record{"severity": "error", "priority": float64(8), "host": "web-1"})
	if len(matches) != 2 {
		t.Fatalf("Match() returned %d matches, want 2", len(matches))
	}

	byID := map[types.PolicyID]Match{}
	for _, match := range matches {
		byID[match.Policy.ID] = match
	}
	if _, ok := byID["pol-disabled"]; ok {
		t.Errorf("disabled policy must never match")
	}
	if got := byID["pol-errors"].Message; got != "error on web-1" {
		t.Errorf("rendered message = %q", got)
	}
	if got := byID["pol-any"].Message; got != "priority 8" {
		t.Errorf("rendered message = %q", got)
	}
}

func TestMatch_NoMatches(t *testing.T) {
	m, err := NewMatcher([]types.AlertPolicy{validPolicy("pol-1")})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if matches := m.Match(types.Record{"severity": "info"}); len(matches) != 0 {
		t.Errorf("Match() = %v, want none", matches)
	}
}

func TestMatch_MissingTemplateFieldRendersEmpty(t *testing.T) {
	p := validPolicy("pol-1")
	p.MessageTemplate = "host={host}"

	m, err := NewMatcher([]types.AlertPolicy{p})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	matches := m.Match(types.Record{"severity": "error"})
	if len(matches) != 1 {
		t.Fatalf("Match() returned %d matches, want 1", len(matches))
	}
	if matches[0].Message != "host=" {
		t.Errorf("Message = %q, want host=", matches[0].Message)
	}
}
