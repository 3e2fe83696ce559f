// Package store persists discovered applications, their audit event streams,
// and analysis snapshots in Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/singura/saas-xray/internal/engine"
	"github.com/singura/saas-xray/internal/risk"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool. The caller retains ownership.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// UpsertApp inserts or refreshes one application record. App rows are never
// hard-deleted; rediscovery refreshes them in place.
func (s *Store) UpsertApp(ctx context.Context, app risk.AppMetadata) error {
	if app.AppID == "" {
		return errors.New("store: app id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oauth_apps (
			app_id, client_id, display_name, platform, granted_scopes,
			initial_scopes, authorizing_user, is_admin_user, is_external_user,
			is_ai_platform, first_authorized_at, last_scope_change_at,
			last_activity_at, owner_emails, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (app_id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			display_name = EXCLUDED.display_name,
			platform = EXCLUDED.platform,
			granted_scopes = EXCLUDED.granted_scopes,
			initial_scopes = EXCLUDED.initial_scopes,
			authorizing_user = EXCLUDED.authorizing_user,
			is_admin_user = EXCLUDED.is_admin_user,
			is_external_user = EXCLUDED.is_external_user,
			is_ai_platform = EXCLUDED.is_ai_platform,
			first_authorized_at = EXCLUDED.first_authorized_at,
			last_scope_change_at = EXCLUDED.last_scope_change_at,
			last_activity_at = EXCLUDED.last_activity_at,
			owner_emails = EXCLUDED.owner_emails,
			updated_at = now()`,
		app.AppID, app.ClientID, app.DisplayName, app.Platform, app.GrantedScopes,
		app.InitialScopes, app.AuthorizingUser, app.IsAdminUser, app.IsExternalUser,
		app.IsAIPlatform, nullTime(app.FirstAuthorizedAt), nullTime(app.LastScopeChangeAt),
		nullTime(app.LastActivityAt), app.OwnerEmails,
	)
	if err != nil {
		return fmt.Errorf("store: upsert app %s: %w", app.AppID, err)
	}
	return nil
}

// GetApp loads one application record.
func (s *Store) GetApp(ctx context.Context, appID string) (risk.AppMetadata, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT app_id, client_id, display_name, platform, granted_scopes,
			initial_scopes, authorizing_user, is_admin_user, is_external_user,
			is_ai_platform, first_authorized_at, last_scope_change_at,
			last_activity_at, owner_emails
		FROM oauth_apps WHERE app_id = $1`, appID)

	app, err := scanApp(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return risk.AppMetadata{}, fmt.Errorf("%w: app %s", ErrNotFound, appID)
	}
	if err != nil {
		return risk.AppMetadata{}, fmt.Errorf("store: get app %s: %w", appID, err)
	}
	return app, nil
}

// ListApps returns every application record ordered by app id.
func (s *Store) ListApps(ctx context.Context) ([]risk.AppMetadata, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT app_id, client_id, display_name, platform, granted_scopes,
			initial_scopes, authorizing_user, is_admin_user, is_external_user,
			is_ai_platform, first_authorized_at, last_scope_change_at,
			last_activity_at, owner_emails
		FROM oauth_apps ORDER BY app_id`)
	if err != nil {
		return nil, fmt.Errorf("store: list apps: %w", err)
	}
	defer rows.Close()

	var apps []risk.AppMetadata
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list apps: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list apps: %w", err)
	}
	return apps, nil
}

// AppendEvents records audit events for an application. The stream is
// append-only.
func (s *Store) AppendEvents(ctx context.Context, appID string, events []risk.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO audit_events (app_id, occurred_at, event_type, actor_email, resource_type, data_volume)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			appID, event.Timestamp.UTC(), event.EventType, event.ActorEmail, event.ResourceType, event.DataVolume)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store: append events for %s: %w", appID, err)
	}
	return nil
}

// EventsSince loads the audit events for an application from the given time
// onward, oldest first.
func (s *Store) EventsSince(ctx context.Context, appID string, since time.Time) ([]risk.AuditEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT occurred_at, event_type, actor_email, resource_type, data_volume
		FROM audit_events
		WHERE app_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at`, appID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: events for %s: %w", appID, err)
	}
	defer rows.Close()

	var events []risk.AuditEvent
	for rows.Next() {
		var event risk.AuditEvent
		if err := rows.Scan(&event.Timestamp, &event.EventType, &event.ActorEmail, &event.ResourceType, &event.DataVolume); err != nil {
			return nil, fmt.Errorf("store: events for %s: %w", appID, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: events for %s: %w", appID, err)
	}
	return events, nil
}

// SaveAnalysis persists one analysis snapshot under a fresh run id.
func (s *Store) SaveAnalysis(ctx context.Context, analysis engine.Analysis) (uuid.UUID, error) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: marshal analysis for %s: %w", analysis.App.AppID, err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (id, app_id, overall, severity, confidence, result, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, analysis.App.AppID, analysis.Score.Overall, analysis.Score.Severity,
		analysis.Score.Confidence, payload, analysis.AnalyzedAt.UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: save analysis for %s: %w", analysis.App.AppID, err)
	}
	return id, nil
}

// LatestAnalysis loads the most recent analysis snapshot for an application.
func (s *Store) LatestAnalysis(ctx context.Context, appID string) (engine.Analysis, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT result FROM analyses
		WHERE app_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, appID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.Analysis{}, fmt.Errorf("%w: analysis for app %s", ErrNotFound, appID)
	}
	if err != nil {
		return engine.Analysis{}, fmt.Errorf("store: latest analysis for %s: %w", appID, err)
	}

	var analysis engine.Analysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return engine.Analysis{}, fmt.Errorf("store: decode analysis for %s: %w", appID, err)
	}
	return analysis, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(row rowScanner) (risk.AppMetadata, error) {
	var app risk.AppMetadata
	var firstAuthorized, lastScopeChange, lastActivity *time.Time
	err := row.Scan(
		&app.AppID, &app.ClientID, &app.DisplayName, &app.Platform, &app.GrantedScopes,
		&app.InitialScopes, &app.AuthorizingUser, &app.IsAdminUser, &app.IsExternalUser,
		&app.IsAIPlatform, &firstAuthorized, &lastScopeChange, &lastActivity, &app.OwnerEmails,
	)
	if err != nil {
		return risk.AppMetadata{}, err
	}
	app.FirstAuthorizedAt = derefTime(firstAuthorized)
	app.LastScopeChangeAt = derefTime(lastScopeChange)
	app.LastActivityAt = derefTime(lastActivity)
	return app, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
