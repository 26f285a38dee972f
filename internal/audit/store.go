package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/db"
)

// Filters narrows an operation log listing.
type Filters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Outcome  string
	Action   string
	Page     int
	PageSize int
}

// PGStore persists entries in operation_logs.
type PGStore struct {
	db db.DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(conn db.DBTX) *PGStore {
	return &PGStore{db: conn}
}

// Insert writes one entry.
func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	if e.Action == "" || e.Outcome == "" {
		return fmt.Errorf("audit: entry requires action and outcome")
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var actor pgtype.Int8
	if e.ActorID != nil {
		actor = pgtype.Int8{Int64: *e.ActorID, Valid: true}
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	_, err = s.db.Exec(ctx, `INSERT INTO operation_logs
	(actor_id, actor_name, action, resource, outcome, reason, meta, ip, user_agent, request_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (request_id) WHERE request_id <> '' DO NOTHING`,
		actor, e.ActorName, e.Action, e.Resource, e.Outcome, e.Reason, meta, e.IP, e.UserAgent, e.RequestID, occurred)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Window returns up to limit entries after skipping offset, newest first.
func (s *PGStore) Window(ctx context.Context, f Filters, offset, limit int) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at < $%d", f.To)
	}
	if f.ActorID > 0 {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Outcome != "" {
		add("outcome = $%d", f.Outcome)
	}
	if f.Action != "" {
		add("action ILIKE '%%' || $%d || '%%'", f.Action)
	}
	query := `SELECT id, actor_id, actor_name, action, resource, outcome, reason, meta, ip, user_agent, request_id, occurred_at
FROM operation_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, offset, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query window: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			actor pgtype.Int8
			meta  []byte
		)
		if err := rows.Scan(&e.ID, &actor, &e.ActorName, &e.Action, &e.Resource, &e.Outcome, &e.Reason, &meta, &e.IP, &e.UserAgent, &e.RequestID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		if actor.Valid {
			id := actor.Int64
			e.ActorID = &id
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purge deletes entries that occurred before cutoff.
func (s *PGStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM operation_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
