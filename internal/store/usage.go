package store

import (
	"context"
	"time"

	"github.com/yenceelabs/speak-to-slides/pkg/errors"
)

type UsageCheck struct {
	Allowed bool
	Reason  string
}

// CheckAndRecordUsage enforces the free-tier policy: identified users
// are unlimited (but still recorded), anonymous callers get one deck per
// IP address.
func (s *Store) CheckAndRecordUsage(ctx context.Context, ipAddress, userID string) (UsageCheck, error) {
	if userID != "" {
		if err := s.recordUsage(ctx, ipAddress, userID); err != nil {
			return UsageCheck{}, err
		}
		return UsageCheck{Allowed: true}, nil
	}

	if ipAddress == "" {
		return UsageCheck{Allowed: true}, nil
	}

	var prior int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE ip_address = ? AND user_id = ''`, ipAddress).Scan(&prior)
	if err != nil {
		return UsageCheck{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to count usage")
	}
	if prior > 0 {
		return UsageCheck{
			Allowed: false,
			Reason:  "Free tier limit reached. Sign in to create more decks.",
		}, nil
	}

	if err := s.recordUsage(ctx, ipAddress, ""); err != nil {
		return UsageCheck{}, err
	}
	return UsageCheck{Allowed: true}, nil
}

func (s *Store) recordUsage(ctx context.Context, ipAddress, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (user_id, ip_address, created_at_unix_ms) VALUES (?, ?, ?)`,
		userID, ipAddress, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to record usage")
	}
	return nil
}
