// Package ledger is the forum participation counter: every accepted message
// moves a per-user count, every fifth message earns a claimable reward, and a
// claim spends one reward only after the minting service confirms it.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoReward is returned when a claim finds no earned reward.
	ErrNoReward = errors.New("no reward to claim")
	// ErrNoWallet is returned when a claim finds no destination address.
	ErrNoWallet = errors.New("no wallet address on file")
	// ErrInvalidWallet is returned for a malformed wallet address.
	ErrInvalidWallet = errors.New("invalid wallet address")
	// ErrMintFailed wraps minting failures. The ledger is left unchanged.
	ErrMintFailed = errors.New("mint failed")
	// ErrUserRequired is returned for an empty user id.
	ErrUserRequired = errors.New("user id required")
)

// Ledger is one user's participation record. Counts never go below zero.
type Ledger struct {
	UserID            string    `json:"user_id"`
	MessageCount      int       `json:"message_count"`
	EarnedRewardCount int       `json:"earned_reward_count"`
	WalletAddress     string    `json:"wallet_address,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store persists ledgers. A user without a row reads as a zero Ledger.
type Store interface {
	Get(ctx context.Context, userID string) (Ledger, error)
	// Update applies fn to the user's ledger atomically, creating the row if
	// needed. When fn returns an error nothing is written.
	Update(ctx context.Context, userID string, fn func(*Ledger) error) (Ledger, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	ledgers map[string]Ledger
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{ledgers: make(map[string]Ledger), now: time.Now}
}

func (m *Memory) Get(_ context.Context, userID string) (Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[userID]
	if !ok {
		return Ledger{UserID: userID}, nil
	}
	return l, nil
}

func (m *Memory) Update(_ context.Context, userID string, fn func(*Ledger) error) (Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[userID]
	if !ok {
		l = Ledger{UserID: userID}
	}
	if err := fn(&l); err != nil {
		return Ledger{}, err
	}
	if l.MessageCount < 0 || l.EarnedRewardCount < 0 {
		return Ledger{}, errors.New("ledger: negative count")
	}
	l.UpdatedAt = m.now().UTC()
	m.ledgers[userID] = l
	return l, nil
}
