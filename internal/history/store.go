package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"

	DefaultLimit = 50
	MaxLimit     = 500
)

// Record is one synthesis attempt made through the HTTP API.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Engine     string    `json:"engine"`
	Model      string    `json:"model"`
	Speaker    string    `json:"speaker,omitempty"`
	Language   string    `json:"language,omitempty"`
	Speed      float64   `json:"speed"`
	TextLength int       `json:"text_length"`
	AudioBytes int       `json:"audio_bytes"`
	LatencyMs  int64     `json:"latency_ms"`
	Cached     bool      `json:"cached"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, r Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO synthesis_logs (id, engine, model, speaker, language, speed, text_length, audio_bytes, latency_ms, cached, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.Engine, r.Model, r.Speaker, r.Language, r.Speed, r.TextLength, r.AudioBytes, r.LatencyMs, r.Cached, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert synthesis log: %w", err)
	}
	return nil
}

// ClampLimit applies the default and upper bound for List.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, engine, model, speaker, language, speed, text_length, audio_bytes, latency_ms, cached, status, error, created_at
		 FROM synthesis_logs ORDER BY created_at DESC LIMIT $1`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query synthesis logs: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Engine, &r.Model, &r.Speaker, &r.Language, &r.Speed, &r.TextLength,
			&r.AudioBytes, &r.LatencyMs, &r.Cached, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan synthesis log: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
