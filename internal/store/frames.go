// ABOUTME: Frame journal methods on SQLiteStore
// ABOUTME: Appends published frames and lists them newest first

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveFrame appends a frame to the journal and sets rec.ID.
func (s *SQLiteStore) SaveFrame(ctx context.Context, rec *FrameRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var payload *string
	if len(rec.Payload) > 0 {
		p := string(rec.Payload)
		payload = &p
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO frames (seq, type, payload, created_at) VALUES (?, ?, ?, ?)`,
		int64(rec.Seq),
		rec.Type,
		payload,
		rec.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting frame: %w", err)
	}

	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading frame id: %w", err)
	}
	return nil
}

// GetFrame returns one journal row by id.
func (s *SQLiteStore) GetFrame(ctx context.Context, id int64) (*FrameRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, seq, type, payload, created_at FROM frames WHERE id = ?`, id)

	rec, err := scanFrame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListFrames returns journal rows newest first.
func (s *SQLiteStore) ListFrames(ctx context.Context, f FrameFilter) ([]*FrameRecord, error) {
	var typeFilter *string
	if f.Type != "" {
		typeFilter = &f.Type
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, type, payload, created_at
		FROM frames
		WHERE (? IS NULL OR type = ?)
		ORDER BY id DESC
		LIMIT ?`,
		typeFilter, typeFilter, normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close()

	var out []*FrameRecord
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames: %w", err)
	}
	return out, nil
}

func scanFrame(scanner interface{ Scan(dest ...any) error }) (*FrameRecord, error) {
	var (
		rec       FrameRecord
		seq       int64
		payload   sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&rec.ID, &seq, &rec.Type, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning frame: %w", err)
	}

	rec.Seq = uint64(seq)
	if payload.Valid {
		rec.Payload = []byte(payload.String)
	}

	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing frame timestamp: %w", err)
	}
	return &rec, nil
}
