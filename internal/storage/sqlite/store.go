// Package sqlite implements storage.Repository on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/sqlite/migrations"
)

// Store persists interview and orchestration records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers; step commits are short.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// CreateSession inserts session and its opening turn in one transaction.
func (s *Store) CreateSession(ctx context.Context, session journey.Session, opening journey.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO interview_sessions (
				id, user_id, job_role, tech_stack, experience_level, mode, state,
				context_json, version, created_at, last_step_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.UserID, session.JobRole, session.TechStack, session.ExperienceLevel,
			session.Mode, string(session.State), string(contextJSON), session.Version,
			toMillis(session.CreatedAt), toMillis(session.LastStepAt), nullableMillis(session.CompletedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrConflict
			}
			return fmt.Errorf("insert session: %w", err)
		}
		opening.Seq = 0
		return insertTurn(ctx, tx, opening)
	})
}

// GetSession returns the session if userID owns it.
func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (journey.Session, error) {
	if err := ctx.Err(); err != nil {
		return journey.Session{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, user_id, job_role, tech_stack, experience_level, mode, state,
			context_json, version, created_at, last_step_at, completed_at
		FROM interview_sessions WHERE id = ?`, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journey.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return journey.Session{}, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return journey.Session{}, storage.ErrForbidden
	}
	return session, nil
}

// ListTurns returns the transcript in sequence order.
func (s *Store) ListTurns(ctx context.Context, userID, sessionID string) ([]journey.Turn, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, session_id, user_id, seq, role, state, content, metadata_json, created_at
		FROM interview_turns WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []journey.Turn
	for rows.Next() {
		var (
			t            journey.Turn
			role, state  string
			metadataJSON string
			createdAt    int64
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.Seq, &role, &state, &t.Content, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = journey.Role(role)
		t.State = journey.State(state)
		t.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(metadataJSON), &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode turn metadata: %w", err)
		}
		if len(t.Metadata) == 0 {
			t.Metadata = nil
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

// CommitStep applies one step atomically. The session row is only updated
// when its version still equals commit.ExpectedVersion.
func (s *Store) CommitStep(ctx context.Context, commit storage.StepCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := commit.Session
	if next.Version != commit.ExpectedVersion+1 {
		return storage.ErrConflict
	}
	contextJSON, err := json.Marshal(next.Context)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM interview_sessions WHERE id = ?`, next.ID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load session owner: %w", err)
		}
		if owner != next.UserID {
			return storage.ErrForbidden
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE interview_sessions
			SET state = ?, context_json = ?, version = ?, last_step_at = ?, completed_at = ?
			WHERE id = ? AND version = ?`,
			string(next.State), string(contextJSON), next.Version, toMillis(next.LastStepAt),
			nullableMillis(next.CompletedAt), next.ID, commit.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if affected != 1 {
			return storage.ErrConflict
		}

		var seq int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM interview_turns WHERE session_id = ?`, next.ID,
		).Scan(&seq); err != nil {
			return fmt.Errorf("next turn seq: %w", err)
		}
		userTurn, assistantTurn := commit.UserTurn, commit.AssistantTurn
		userTurn.Seq, assistantTurn.Seq = seq, seq+1
		if err := insertTurn(ctx, tx, userTurn); err != nil {
			return err
		}
		if err := insertTurn(ctx, tx, assistantTurn); err != nil {
			return err
		}

		if commit.Metrics != nil {
			return insertMetrics(ctx, tx, *commit.Metrics)
		}
		return nil
	})
}

// GetMetrics returns the metrics of a completed session.
func (s *Store) GetMetrics(ctx context.Context, userID, sessionID string) (journey.Metrics, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return journey.Metrics{}, err
	}

	var (
		m         journey.Metrics
		overall   float64
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, clarification_habit, structure, tradeoff_awareness,
			scalability_thinking, failure_awareness, adaptability, overall_score, created_at
		FROM interview_metrics WHERE session_id = ?`, sessionID,
	).Scan(&m.ID, &m.SessionID, &m.UserID, &m.ClarificationHabit, &m.Structure, &m.TradeoffAwareness,
		&m.ScalabilityThinking, &m.FailureAwareness, &m.Adaptability, &overall, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return journey.Metrics{}, storage.ErrNotFound
	}
	if err != nil {
		return journey.Metrics{}, fmt.Errorf("get metrics: %w", err)
	}
	// Older clients stored fractions; see journey.NormalizeOverall.
	m.OverallScore = journey.OverallPercent(overall)
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

// LatestScore returns the overall score recorded last for userID, as stored.
func (s *Store) LatestScore(ctx context.Context, userID string) (storage.LatestScore, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.LatestScore{}, false, err
	}

	var (
		latest    storage.LatestScore
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT session_id, overall_score, created_at
		FROM interview_metrics WHERE user_id = ?
		ORDER BY recorded_seq DESC LIMIT 1`, userID,
	).Scan(&latest.SessionID, &latest.RawOverall, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.LatestScore{}, false, nil
	}
	if err != nil {
		return storage.LatestScore{}, false, fmt.Errorf("latest score: %w", err)
	}
	latest.RecordedAt = fromMillis(createdAt)
	return latest, true, nil
}

// OnboardingCompleted reports whether userID finished onboarding.
func (s *Store) OnboardingCompleted(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM user_onboarding WHERE user_id = ?`, userID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get onboarding: %w", err)
	}
	return true, nil
}

// CompleteOnboarding marks onboarding complete, keeping the first time.
func (s *Store) CompleteOnboarding(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_onboarding (user_id, completed_at) VALUES (?, ?)`,
		userID, toMillis(at),
	); err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	return nil
}

// RecordDecision appends decision and upserts snapshot in one transaction.
func (s *Store) RecordDecision(ctx context.Context, decision orchestrator.Decision, snapshot orchestrator.ProgressSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if decision.UserID == "" || decision.UserID != snapshot.UserID {
		return fmt.Errorf("decision and snapshot must share a user id")
	}
	inputJSON, err := json.Marshal(decision.Input)
	if err != nil {
		return fmt.Errorf("encode decision input: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orchestrator_decisions (id, user_id, input_json, next_module, depth, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			decision.ID, decision.UserID, string(inputJSON), string(decision.NextModule),
			decision.Depth, decision.Reason, toMillis(decision.CreatedAt),
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrConflict
			}
			return fmt.Errorf("insert decision: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_state (
				user_id, onboarding_completed, last_module, last_seen_at, last_session_id, last_overall_score
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				onboarding_completed = excluded.onboarding_completed,
				last_module = excluded.last_module,
				last_seen_at = excluded.last_seen_at,
				last_session_id = excluded.last_session_id,
				last_overall_score = excluded.last_overall_score`,
			snapshot.UserID, boolToInt(snapshot.OnboardingCompleted), string(snapshot.LastModule),
			toMillis(snapshot.LastSeenAt), nullableString(snapshot.LastSessionID), nullableFloat(snapshot.LastOverallScore),
		); err != nil {
			return fmt.Errorf("upsert user state: %w", err)
		}
		return nil
	})
}

// ListDecisions returns up to limit decisions, newest first.
func (s *Store) ListDecisions(ctx context.Context, userID string, limit int) ([]orchestrator.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, user_id, input_json, next_module, depth, reason, created_at
		FROM orchestrator_decisions WHERE user_id = ?
		ORDER BY seq DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	decisions := []orchestrator.Decision{}
	for rows.Next() {
		var (
			d         orchestrator.Decision
			inputJSON string
			module    string
			createdAt int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &inputJSON, &module, &d.Depth, &d.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(inputJSON), &d.Input); err != nil {
			return nil, fmt.Errorf("decode decision input: %w", err)
		}
		d.NextModule = orchestrator.Module(module)
		d.CreatedAt = fromMillis(createdAt)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return decisions, nil
}

// GetProgress returns the progress snapshot for userID.
func (s *Store) GetProgress(ctx context.Context, userID string) (orchestrator.ProgressSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return orchestrator.ProgressSnapshot{}, false, err
	}

	var (
		snap       orchestrator.ProgressSnapshot
		onboarded  int
		module     string
		lastSeenAt int64
		sessionID  sql.NullString
		score      sql.NullFloat64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT user_id, onboarding_completed, last_module, last_seen_at, last_session_id, last_overall_score
		FROM user_state WHERE user_id = ?`, userID,
	).Scan(&snap.UserID, &onboarded, &module, &lastSeenAt, &sessionID, &score)
	if errors.Is(err, sql.ErrNoRows) {
		return orchestrator.ProgressSnapshot{}, false, nil
	}
	if err != nil {
		return orchestrator.ProgressSnapshot{}, false, fmt.Errorf("get progress: %w", err)
	}
	snap.OnboardingCompleted = onboarded != 0
	snap.LastModule = orchestrator.Module(module)
	snap.LastSeenAt = fromMillis(lastSeenAt)
	if sessionID.Valid {
		v := sessionID.String
		snap.LastSessionID = &v
	}
	if score.Valid {
		v := score.Float64
		snap.LastOverallScore = &v
	}
	return snap, true, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (journey.Session, error) {
	var (
		session     journey.Session
		state       string
		contextJSON string
		createdAt   int64
		lastStepAt  int64
		completedAt sql.NullInt64
	)
	if err := row.Scan(&session.ID, &session.UserID, &session.JobRole, &session.TechStack,
		&session.ExperienceLevel, &session.Mode, &state, &contextJSON, &session.Version,
		&createdAt, &lastStepAt, &completedAt); err != nil {
		return journey.Session{}, err
	}
	if err := json.Unmarshal([]byte(contextJSON), &session.Context); err != nil {
		return journey.Session{}, fmt.Errorf("decode session context: %w", err)
	}
	session.State = journey.State(state)
	session.CreatedAt = fromMillis(createdAt)
	session.LastStepAt = fromMillis(lastStepAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		session.CompletedAt = &t
	}
	return session, nil
}

func insertTurn(ctx context.Context, tx *sql.Tx, turn journey.Turn) error {
	metadata := turn.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode turn metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO interview_turns (session_id, seq, id, user_id, role, state, content, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Seq, turn.ID, turn.UserID, string(turn.Role), string(turn.State),
		turn.Content, string(metadataJSON), toMillis(turn.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func insertMetrics(ctx context.Context, tx *sql.Tx, m journey.Metrics) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO interview_metrics (
			session_id, id, user_id, clarification_habit, structure, tradeoff_awareness,
			scalability_thinking, failure_awareness, adaptability, overall_score, created_at, recorded_seq
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(recorded_seq), 0) + 1 FROM interview_metrics))`,
		m.SessionID, m.ID, m.UserID, m.ClarificationHabit, m.Structure, m.TradeoffAwareness,
		m.ScalabilityThinking, m.FailureAwareness, m.Adaptability, float64(m.OverallScore), toMillis(m.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ storage.Repository = (*Store)(nil)
