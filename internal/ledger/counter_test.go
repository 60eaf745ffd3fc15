package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const wallet = "0x52908400098527886E0F7030069857D2E4169EE7"

func seed(t *testing.T, store Store, userID string, l Ledger) {
	t.Helper()
	if _, err := store.Update(context.Background(), userID, func(cur *Ledger) error {
		cur.MessageCount = l.MessageCount
		cur.EarnedRewardCount = l.EarnedRewardCount
		cur.WalletAddress = l.WalletAddress
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestRecordMessageEarnsOnInterval(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	c := NewCounter(store, nil, 5, prometheus.NewRegistry())
	seed(t, store, "u1", Ledger{MessageCount: 4})

	l, earned, err := c.RecordMessage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	if !earned || l.MessageCount != 5 || l.EarnedRewardCount != 1 {
		t.Fatalf("5th message: earned=%v ledger=%+v", earned, l)
	}
	for i := 6; i <= 9; i++ {
		l, earned, err = c.RecordMessage(context.Background(), "u1")
		if err != nil || earned {
			t.Fatalf("message %d: earned=%v err=%v", i, earned, err)
		}
	}
	if l.MessageCount != 9 || l.EarnedRewardCount != 1 {
		t.Fatalf("after 9 messages: %+v", l)
	}
	if l, earned, _ = c.RecordMessage(context.Background(), "u1"); !earned || l.EarnedRewardCount != 2 {
		t.Fatalf("10th message: earned=%v ledger=%+v", earned, l)
	}
}

func TestRecordMessageConcurrent(t *testing.T) {
	t.Parallel()
	c := NewCounter(NewMemory(), nil, 5, nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	rewards := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, earned, err := c.RecordMessage(context.Background(), "u1")
			if err != nil {
				t.Errorf("RecordMessage: %v", err)
			}
			if earned {
				mu.Lock()
				rewards++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	l, _ := c.Get(context.Background(), "u1")
	if l.MessageCount != 50 || l.EarnedRewardCount != 10 || rewards != 10 {
		t.Fatalf("ledger=%+v rewards=%d", l, rewards)
	}
}

func TestClaim(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		start       Ledger
		minter      Minter
		wantErr     error
		wantEarned  int
		wantMinting bool
	}{
		{"success", Ledger{EarnedRewardCount: 1, WalletAddress: wallet}, okMinter(), nil, 0, true},
		{"mint error", Ledger{EarnedRewardCount: 1, WalletAddress: wallet}, errMinter(), ErrMintFailed, 1, true},
		{"mint rejected", Ledger{EarnedRewardCount: 1, WalletAddress: wallet}, MinterFunc(func(context.Context, string) (MintResult, error) {
			return MintResult{Success: false}, nil
		}), ErrMintFailed, 1, true},
		{"no reward", Ledger{WalletAddress: wallet}, okMinter(), ErrNoReward, 0, false},
		{"no wallet", Ledger{EarnedRewardCount: 2}, okMinter(), ErrNoWallet, 2, false},
		{"no minter configured", Ledger{EarnedRewardCount: 1, WalletAddress: wallet}, nil, ErrMintFailed, 1, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := NewMemory()
			seed(t, store, "u1", tc.start)
			minted := false
			minter := tc.minter
			if minter != nil {
				inner := minter
				minter = MinterFunc(func(ctx context.Context, addr string) (MintResult, error) {
					minted = true
					if addr != wallet {
						t.Errorf("minted to %q", addr)
					}
					return inner.Mint(ctx, addr)
				})
			}
			c := NewCounter(store, minter, 5, nil)

			claim, err := c.Claim(context.Background(), "u1")
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Claim: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Claim err = %v, want %v", err, tc.wantErr)
			}
			if minted != tc.wantMinting {
				t.Fatalf("minted = %v, want %v", minted, tc.wantMinting)
			}
			l, _ := store.Get(context.Background(), "u1")
			if l.EarnedRewardCount != tc.wantEarned {
				t.Fatalf("earned = %d, want %d", l.EarnedRewardCount, tc.wantEarned)
			}
			if err == nil && (claim.TxRef != "0xtx" || claim.Ledger.EarnedRewardCount != tc.wantEarned) {
				t.Fatalf("claim = %+v", claim)
			}
		})
	}
}

// ctxStore fails writes whose context is already done, like a database driver.
type ctxStore struct {
	*Memory
}

func (s ctxStore) Update(ctx context.Context, userID string, fn func(*Ledger) error) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return Ledger{}, err
	}
	return s.Memory.Update(ctx, userID, fn)
}

func TestClaimRecordedAfterCallerGoesAway(t *testing.T) {
	t.Parallel()
	store := ctxStore{NewMemory()}
	seed(t, store, "u1", Ledger{EarnedRewardCount: 1, WalletAddress: wallet})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	minter := MinterFunc(func(context.Context, string) (MintResult, error) {
		cancel()
		return MintResult{Success: true, TxRef: "0xtx"}, nil
	})
	c := NewCounter(store, minter, 5, nil)

	claim, err := c.Claim(ctx, "u1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.TxRef != "0xtx" || claim.Ledger.EarnedRewardCount != 0 {
		t.Fatalf("claim = %+v", claim)
	}
	l, _ := store.Get(context.Background(), "u1")
	if l.EarnedRewardCount != 0 {
		t.Fatalf("earned = %d after minted claim, want 0", l.EarnedRewardCount)
	}
}

func TestSetWallet(t *testing.T) {
	t.Parallel()
	c := NewCounter(NewMemory(), nil, 5, nil)
	if _, err := c.SetWallet(context.Background(), "u1", "not-an-address"); !errors.Is(err, ErrInvalidWallet) {
		t.Fatalf("expected ErrInvalidWallet, got %v", err)
	}
	l, err := c.SetWallet(context.Background(), "u1", " 0x52908400098527886e0f7030069857d2e4169ee7 ")
	if err != nil {
		t.Fatalf("SetWallet: %v", err)
	}
	if l.WalletAddress != wallet {
		t.Fatalf("wallet = %q, want checksum form %q", l.WalletAddress, wallet)
	}
	if _, err := c.SetWallet(context.Background(), "", wallet); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
}

func TestHTTPMinter(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"tx_ref":"0xabc"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPMinter(srv.URL, "secret", time.Second).Mint(context.Background(), wallet)
	if err != nil || !res.Success || res.TxRef != "0xabc" {
		t.Fatalf("Mint = %+v, %v", res, err)
	}
	if _, err := NewHTTPMinter(srv.URL, "wrong", time.Second).Mint(context.Background(), wallet); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func okMinter() Minter {
	return MinterFunc(func(context.Context, string) (MintResult, error) {
		return MintResult{Success: true, TxRef: "0xtx"}, nil
	})
}

func errMinter() Minter {
	return MinterFunc(func(context.Context, string) (MintResult, error) {
		return MintResult{}, errors.New("rpc timeout")
	})
}
