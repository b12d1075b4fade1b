package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haus-platform/cortex/internal/model"
)

func scanFact(row interface{ Scan(...any) error }) (*model.Fact, error) {
	var f model.Fact
	var tags sql.NullString
	var createdAt string

	err := row.Scan(&f.ID, &f.SpaceID, &f.Fact, &f.Subject, &f.Predicate,
		&f.Object, &f.Confidence, &f.Category, &tags, &createdAt)
	if err != nil {
		return nil, err
	}

	if f.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &f, nil
}

const factColumns = `id, space_id, fact, subject, predicate, object, confidence, category, tags, created_at`

// GetFact retrieves a fact by ID.
func (s *Store) GetFact(ctx context.Context, factID string) (*model.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = ?`, factID)

	f, err := scanFact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fact %s not found", factID)
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	return f, nil
}

// ListFacts returns the most recent facts for a space.
func (s *Store) ListFacts(ctx context.Context, spaceID string, limit int) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts
		 WHERE space_id = ? ORDER BY created_at DESC LIMIT ?`, spaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, *f)
	}
	return facts, rows.Err()
}
