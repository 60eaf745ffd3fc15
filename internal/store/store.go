// Package store persists user ledgers in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/azadi/internal/ledger"
)

type Store struct {
	DB  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

func (s *Store) Close() error { return s.DB.Close() }

const selectLedger = `SELECT user_id, message_count, earned_reward_count, COALESCE(wallet_address, ''), updated_at FROM user_ledgers WHERE user_id = $1`

// Get returns the user's ledger, or a zero ledger when there is no row.
func (s *Store) Get(ctx context.Context, userID string) (ledger.Ledger, error) {
	l, err := scanLedger(s.DB.QueryRowContext(ctx, selectLedger, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Ledger{UserID: userID}, nil
	}
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("get ledger: %w", err)
	}
	return l, nil
}

// Update locks the user's row for the duration of fn and writes the result in
// the same transaction.
func (s *Store) Update(ctx context.Context, userID string, fn func(*ledger.Ledger) error) (ledger.Ledger, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO user_ledgers (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return ledger.Ledger{}, fmt.Errorf("ensure ledger: %w", err)
	}
	l, err := scanLedger(tx.QueryRowContext(ctx, selectLedger+` FOR UPDATE`, userID))
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("lock ledger: %w", err)
	}
	if err := fn(&l); err != nil {
		return ledger.Ledger{}, err
	}
	if l.MessageCount < 0 || l.EarnedRewardCount < 0 {
		return ledger.Ledger{}, errors.New("ledger: negative count")
	}
	l.UpdatedAt = s.now().UTC()

	var wallet sql.NullString
	if l.WalletAddress != "" {
		wallet = sql.NullString{String: l.WalletAddress, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_ledgers SET message_count = $2, earned_reward_count = $3, wallet_address = $4, updated_at = $5 WHERE user_id = $1`,
		userID, l.MessageCount, l.EarnedRewardCount, wallet, l.UpdatedAt); err != nil {
		return ledger.Ledger{}, fmt.Errorf("write ledger: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ledger.Ledger{}, fmt.Errorf("commit: %w", err)
	}
	return l, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (ledger.Ledger, error) {
	var l ledger.Ledger
	err := row.Scan(&l.UserID, &l.MessageCount, &l.EarnedRewardCount, &l.WalletAddress, &l.UpdatedAt)
	return l, err
}
