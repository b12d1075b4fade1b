package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AdmitBucket applies fixed-window admission for one bucket key inside a
// single immediate transaction, so the ceiling check and the increment are
// atomic per identity even across server instances sharing the store.
//
// A missing or elapsed bucket resets to count 1 and allows. A live bucket
// increments and allows while the ceiling holds; once the increment would
// exceed the ceiling the call is rejected and the bucket is left untouched,
// so repeated rejections within the window are idempotent.
func (s *Store) AdmitBucket(ctx context.Context, key string, ceiling int, window time.Duration, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin rate limit tx: %w", err)
	}
	defer tx.Rollback()

	var windowStart string
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT window_start, count FROM rate_limits WHERE key = ?`, key).
		Scan(&windowStart, &count)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rate_limits (key, window_start, count) VALUES (?, ?, 1)`,
			key, formatTime(now))
		if err != nil {
			return false, fmt.Errorf("insert rate limit bucket: %w", err)
		}

	case err != nil:
		return false, fmt.Errorf("get rate limit bucket: %w", err)

	default:
		start, err := parseTime(windowStart)
		if err != nil {
			return false, err
		}

		if now.Sub(start) >= window {
			_, err = tx.ExecContext(ctx,
				`UPDATE rate_limits SET window_start = ?, count = 1 WHERE key = ?`,
				formatTime(now), key)
			if err != nil {
				return false, fmt.Errorf("reset rate limit bucket: %w", err)
			}
		} else if count+1 > ceiling {
			// Rejected: bucket stays untouched for the rest of the window.
			return false, nil
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE rate_limits SET count = count + 1 WHERE key = ?`, key)
			if err != nil {
				return false, fmt.Errorf("increment rate limit bucket: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit rate limit tx: %w", err)
	}
	return true, nil
}

// BucketCount returns the current count of a bucket, or zero when the bucket
// does not exist.
func (s *Store) BucketCount(ctx context.Context, key string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM rate_limits WHERE key = ?`, key).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get bucket count: %w", err)
	}
	return count, nil
}
