package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Alert persistence.
 *
 * Alerts are written once on trigger (including suppressed ones, for
 * auditability), delivery results are recorded after dispatch, and status
 * transitions arrive from external operator actions. Timestamps are stored
 * as RFC3339 text in both dialects so rows scan identically across
 * drivers.
 *
 * Allowed status transitions:
 *   active     -> acknowledged | resolved
 *   acknowledged -> resolved
 *   suppressed -> resolved
 */

// AlertStore persists alerts and delivery results through named queries.
type AlertStore struct {
	queries *Queries
}

// NewAlertStore creates an alert store over loaded queries.
func NewAlertStore(queries *Queries) *AlertStore {
	return &AlertStore{queries: queries}
}

type alertRow struct {
	ID             string `db:"id"`
	PolicyID       string `db:"policy_id"`
	Status         string `db:"status"`
	Severity       string `db:"severity"`
	TriggeredAt    string `db:"triggered_at"`
	SourceEventRef string `db:"source_event_ref"`
	Message        string `db:"message"`
}

type deliveryRow struct {
	ProviderID    string `db:"provider_id"`
	AttemptCount  int    `db:"attempt_count"`
	LastAttemptAt string `db:"last_attempt_at"`
	Outcome       string `db:"outcome"`
	Error         string `db:"error"`
}

// InsertAlert records a freshly triggered alert.
func (s *AlertStore) InsertAlert(ctx context.Context, alert *types.Alert) error {
	_, err := s.queries.Exec(ctx, "insert-alert",
		string(alert.ID),
		string(alert.PolicyID),
		string(alert.Status),
		string(alert.Severity),
		alert.TriggeredAt.UTC().Format(time.RFC3339),
		string(alert.SourceEventRef),
		alert.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// SaveDeliveryResults records per-provider delivery outcomes for an alert.
func (s *AlertStore) SaveDeliveryResults(ctx context.Context, id types.AlertID, results []types.ProviderDeliveryResult) error {
	for _, r := range results {
		_, err := s.queries.Exec(ctx, "insert-delivery",
			string(id),
			string(r.ProviderID),
			r.AttemptCount,
			r.LastAttemptAt.UTC().Format(time.RFC3339),
			string(r.Outcome),
			r.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to record delivery for alert %s provider %s: %w", id, r.ProviderID, err)
		}
	}
	return nil
}

// GetAlert loads an alert with its delivery results.
func (s *AlertStore) GetAlert(ctx context.Context, id types.AlertID) (*types.Alert, error) {
	var row alertRow
	if err := s.queries.Get(ctx, "get-alert", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, types.ErrAlertNotFound)
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}

	triggeredAt, err := time.Parse(time.RFC3339, row.TriggeredAt)
	if err != nil {
		return nil, fmt.Errorf("alert %s: bad triggered_at %q: %w", id, row.TriggeredAt, err)
	}

	alert := &types.Alert{
		ID:             types.AlertID(row.ID),
		PolicyID:       types.PolicyID(row.PolicyID),
		Status:         types.AlertStatus(row.Status),
		Severity:       types.Severity(row.Severity),
		TriggeredAt:    triggeredAt,
		SourceEventRef: types.EventID(row.SourceEventRef),
		Message:        row.Message,
	}

	var deliveries []deliveryRow
	if err := s.queries.Select(ctx, "list-deliveries", &deliveries, string(id)); err != nil {
		return nil, fmt.Errorf("failed to load deliveries for alert %s: %w", id, err)
	}
	for _, d := range deliveries {
		lastAttempt, _ := time.Parse(time.RFC3339, d.LastAttemptAt)
		alert.DeliveryResults = append(alert.DeliveryResults, types.ProviderDeliveryResult{
			ProviderID:    types.ProviderID(d.ProviderID),
			AttemptCount:  d.AttemptCount,
			LastAttemptAt: lastAttempt,
			Outcome:       types.DeliveryOutcome(d.Outcome),
			Error:         d.Error,
		})
	}

	return alert, nil
}

// Acknowledge transitions an alert to acknowledged.
func (s *AlertStore) Acknowledge(ctx context.Context, id types.AlertID) error {
	return s.transition(ctx, id, types.AlertAcknowledged)
}

// Resolve transitions an alert to resolved.
func (s *AlertStore) Resolve(ctx context.Context, id types.AlertID) error {
	return s.transition(ctx, id, types.AlertResolved)
}

func (s *AlertStore) transition(ctx context.Context, id types.AlertID, to types.AlertStatus) error {
	var current string
	if err := s.queries.Get(ctx, "get-alert-status", &current, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("alert %s: %w", id, types.ErrAlertNotFound)
		}
		return fmt.Errorf("failed to load alert %s: %w", id, err)
	}

	if !transitionAllowed(types.AlertStatus(current), to) {
		return fmt.Errorf("alert %s: %s -> %s: %w", id, current, to, types.ErrInvalidTransition)
	}

	if _, err := s.queries.Exec(ctx, "update-alert-status", string(to), string(id)); err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}
	return nil
}

func transitionAllowed(from, to types.AlertStatus) bool {
	switch from {
	case types.AlertActive:
		return to == types.AlertAcknowledged || to == types.AlertResolved
	case types.AlertAcknowledged:
		return to == types.AlertResolved
	case types.AlertSuppressed:
		return to == types.AlertResolved
	default:
		return false
	}
}
