package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammad-safakhou/azadi/internal/helpers"
	"github.com/mohammad-safakhou/azadi/internal/logging"
)

// DefaultRewardInterval is the number of messages per reward.
const DefaultRewardInterval = 5

// recordTimeout bounds writing a claim after a successful mint.
const recordTimeout = 10 * time.Second

// Claim is a successful reward claim.
type Claim struct {
	TxRef  string `json:"tx_ref,omitempty"`
	Ledger Ledger `json:"ledger"`
}

// Counter applies forum events and claims to user ledgers.
type Counter struct {
	store    Store
	minter   Minter
	interval int
	locks    helpers.KeyedMutex

	rewards prometheus.Counter
	claims  *prometheus.CounterVec
}

// NewCounter returns a Counter. interval <= 0 uses DefaultRewardInterval and a
// nil minter uses Unavailable. Metrics are registered with reg when it is not
// nil.
func NewCounter(store Store, minter Minter, interval int, reg prometheus.Registerer) *Counter {
	if interval <= 0 {
		interval = DefaultRewardInterval
	}
	if minter == nil {
		minter = Unavailable
	}
	c := &Counter{
		store:    store,
		minter:   minter,
		interval: interval,
		rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "ledger_rewards_earned_total",
			Help:      "Rewards earned by forum participation.",
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "ledger_claims_total",
			Help:      "Reward claims by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(c.rewards, c.claims)
	}
	return c
}

// Interval is the number of messages per reward.
func (c *Counter) Interval() int { return c.interval }

// Get returns the user's ledger.
func (c *Counter) Get(ctx context.Context, userID string) (Ledger, error) {
	if strings.TrimSpace(userID) == "" {
		return Ledger{}, ErrUserRequired
	}
	return c.store.Get(ctx, userID)
}

// RecordMessage counts one accepted forum message. rewardEarned is true
// exactly when the new count is a positive multiple of the interval.
func (c *Counter) RecordMessage(ctx context.Context, userID string) (l Ledger, rewardEarned bool, err error) {
	if strings.TrimSpace(userID) == "" {
		return Ledger{}, false, ErrUserRequired
	}
	unlock := c.locks.Lock(userID)
	defer unlock()

	l, err = c.store.Update(ctx, userID, func(l *Ledger) error {
		l.MessageCount++
		rewardEarned = l.MessageCount%c.interval == 0
		if rewardEarned {
			l.EarnedRewardCount++
		}
		return nil
	})
	if err != nil {
		return Ledger{}, false, fmt.Errorf("record message: %w", err)
	}
	if rewardEarned {
		c.rewards.Inc()
		logging.Ctx(ctx).Info().Str("user_id", userID).Int("earned", l.EarnedRewardCount).Msg("reward earned")
	}
	return l, rewardEarned, nil
}

// SetWallet stores the destination address for claims in checksum form.
func (c *Counter) SetWallet(ctx context.Context, userID, address string) (Ledger, error) {
	if strings.TrimSpace(userID) == "" {
		return Ledger{}, ErrUserRequired
	}
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return Ledger{}, ErrInvalidWallet
	}
	checksum := common.HexToAddress(address).Hex()

	unlock := c.locks.Lock(userID)
	defer unlock()
	return c.store.Update(ctx, userID, func(l *Ledger) error {
		l.WalletAddress = checksum
		return nil
	})
}

// Claim spends one earned reward. The mint runs first; the counter is
// decremented only after the minting service reports success, and a failed
// mint leaves the ledger untouched.
func (c *Counter) Claim(ctx context.Context, userID string) (Claim, error) {
	if strings.TrimSpace(userID) == "" {
		return Claim{}, ErrUserRequired
	}
	unlock := c.locks.Lock(userID)
	defer unlock()

	l, err := c.store.Get(ctx, userID)
	if err != nil {
		return Claim{}, fmt.Errorf("load ledger: %w", err)
	}
	if l.EarnedRewardCount < 1 {
		c.claims.WithLabelValues("no_reward").Inc()
		return Claim{}, ErrNoReward
	}
	if l.WalletAddress == "" {
		c.claims.WithLabelValues("no_wallet").Inc()
		return Claim{}, ErrNoWallet
	}

	res, err := c.minter.Mint(ctx, l.WalletAddress)
	if err != nil {
		c.claims.WithLabelValues("mint_error").Inc()
		return Claim{}, fmt.Errorf("%w: %w", ErrMintFailed, err)
	}
	if !res.Success {
		c.claims.WithLabelValues("mint_rejected").Inc()
		return Claim{}, fmt.Errorf("%w: service reported failure", ErrMintFailed)
	}

	// The asset is already issued; record it even if the caller has gone.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	updated, err := c.store.Update(rctx, userID, func(l *Ledger) error {
		if l.EarnedRewardCount < 1 {
			return ErrNoReward
		}
		l.EarnedRewardCount--
		return nil
	})
	if err != nil {
		// The asset was issued but the decrement did not persist.
		logging.Ctx(ctx).Error().Err(err).Str("user_id", userID).Str("tx_ref", res.TxRef).Msg("minted reward not recorded")
		c.claims.WithLabelValues("record_error").Inc()
		return Claim{}, fmt.Errorf("record claim: %w", err)
	}
	c.claims.WithLabelValues("ok").Inc()
	logging.Ctx(ctx).Info().Str("user_id", userID).Str("tx_ref", res.TxRef).Msg("reward claimed")
	return Claim{TxRef: res.TxRef, Ledger: updated}, nil
}
