package db

import (
	"testing"

	"github.com/mlenstra/shrike/internal/types"
)

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from types.AlertStatus
		to   types.AlertStatus
		want bool
	}{
		{types.AlertActive, types.AlertAcknowledged, true},
		{types.AlertActive, types.AlertResolved, true},
		{types.AlertActive, types.AlertSuppressed, false},
		{types.AlertAcknowledged, types.AlertResolved, true},
		{types.AlertAcknowledged, types.AlertActive, false},
		{types.AlertAcknowledged, types.AlertAcknowledged, false},
		{types.AlertSuppressed, types.AlertResolved, true},
		{types.AlertSuppressed, types.AlertAcknowledged, false},
		{types.AlertResolved, types.AlertActive, false},
		{types.AlertResolved, types.AlertResolved, false},
	}

	for _, tt := range tests {
		if got := transitionAllowed(tt.from, tt.to); got != tt.want {
			t.Errorf("transitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
