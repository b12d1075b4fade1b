package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haus-platform/cortex/internal/model"
)

// SuburbMention is one observation of a user's sentiment toward a suburb,
// merged into the running preference row.
type SuburbMention struct {
	UserID     string
	SuburbName string
	State      string
	Confidence int
	Reason     string
	Query      string
}

// SavePreference inserts a fact and, when a suburb mention is supplied,
// merges it into the suburb preference row — all in one transaction so a
// rejected or failed call leaves no partial write.
//
// The merge overwrites the score with the latest signed confidence (later
// mentions dominate), increments the interaction count, and appends the
// reason and query to their lists.
func (s *Store) SavePreference(ctx context.Context, fact *model.Fact, mention *SuburbMention) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preference tx: %w", err)
	}
	defer tx.Rollback()

	if mention != nil {
		if err := mergeSuburbMention(ctx, tx, mention); err != nil {
			return err
		}
	}

	tags, err := encodeList(fact.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO facts (id, space_id, fact, subject, predicate, object, confidence, category, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.SpaceID, fact.Fact, fact.Subject, fact.Predicate, fact.Object,
		fact.Confidence, fact.Category, tags, formatTime(fact.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preference tx: %w", err)
	}
	return nil
}

func mergeSuburbMention(ctx context.Context, tx *sql.Tx, m *SuburbMention) error {
	now := time.Now()
	score := model.SignedScore(m.Confidence)

	var id string
	var count int
	var reasonsRaw, queriesRaw sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT id, interaction_count, reasons, mentioned_in_queries
		 FROM suburb_preferences WHERE user_id = ? AND suburb_name = ? AND state = ?`,
		m.UserID, m.SuburbName, m.State).Scan(&id, &count, &reasonsRaw, &queriesRaw)

	if errors.Is(err, sql.ErrNoRows) {
		reasons, err := encodeList(nonEmpty(m.Reason))
		if err != nil {
			return err
		}
		queries, err := encodeList(nonEmpty(m.Query))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO suburb_preferences (id, user_id, suburb_name, state, preference_score,
			                                 interaction_count, reasons, mentioned_in_queries,
			                                 first_mentioned_at, last_mentioned_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
			newID(), m.UserID, m.SuburbName, m.State, score,
			reasons, queries, formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert suburb preference: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get suburb preference: %w", err)
	}

	reasons, err := appendToList(reasonsRaw, m.Reason)
	if err != nil {
		return err
	}
	queries, err := appendToList(queriesRaw, m.Query)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE suburb_preferences
		 SET preference_score = ?, interaction_count = ?, reasons = ?,
		     mentioned_in_queries = ?, last_mentioned_at = ?
		 WHERE id = ?`,
		score, count+1, reasons, queries, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update suburb preference: %w", err)
	}
	return nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func appendToList(raw sql.NullString, item string) (string, error) {
	items, err := decodeList(raw)
	if err != nil {
		return "", err
	}
	if item != "" {
		items = append(items, item)
	}
	return encodeList(items)
}

func scanSuburbPreference(row interface{ Scan(...any) error }) (*model.SuburbPreference, error) {
	var p model.SuburbPreference
	var reasons, queries sql.NullString
	var first, last string

	err := row.Scan(&p.ID, &p.UserID, &p.SuburbName, &p.State, &p.PreferenceScore,
		&p.InteractionCount, &reasons, &queries, &first, &last)
	if err != nil {
		return nil, err
	}

	if p.Reasons, err = decodeList(reasons); err != nil {
		return nil, err
	}
	if p.MentionedInQueries, err = decodeList(queries); err != nil {
		return nil, err
	}
	if p.FirstMentionedAt, err = parseTime(first); err != nil {
		return nil, err
	}
	if p.LastMentionedAt, err = parseTime(last); err != nil {
		return nil, err
	}
	return &p, nil
}

const suburbPreferenceColumns = `id, user_id, suburb_name, state, preference_score,
	interaction_count, reasons, mentioned_in_queries, first_mentioned_at, last_mentioned_at`

// GetSuburbPreference returns the preference row for one (user, suburb,
// state) tuple, or nil when the suburb was never mentioned.
func (s *Store) GetSuburbPreference(ctx context.Context, userID, suburbName, state string) (*model.SuburbPreference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suburbPreferenceColumns+` FROM suburb_preferences
		 WHERE user_id = ? AND suburb_name = ? AND state = ?`,
		userID, suburbName, state)

	p, err := scanSuburbPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suburb preference: %w", err)
	}
	return p, nil
}

// ListSuburbPreferences returns a user's suburb preferences with a score
// above minScore, ranked by score descending.
func (s *Store) ListSuburbPreferences(ctx context.Context, userID string, minScore, limit int) ([]model.SuburbPreference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+suburbPreferenceColumns+` FROM suburb_preferences
		 WHERE user_id = ? AND preference_score > ?
		 ORDER BY preference_score DESC LIMIT ?`,
		userID, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("list suburb preferences: %w", err)
	}
	defer rows.Close()

	var prefs []model.SuburbPreference
	for rows.Next() {
		p, err := scanSuburbPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suburb preference: %w", err)
		}
		prefs = append(prefs, *p)
	}
	return prefs, rows.Err()
}
