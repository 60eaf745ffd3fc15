package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/azadi/internal/httpclient"
)

// MintResult is what the minting service reports.
type MintResult struct {
	Success bool   `json:"success"`
	TxRef   string `json:"tx_ref,omitempty"`
}

// Minter issues the reward asset to an address.
type Minter interface {
	Mint(ctx context.Context, address string) (MintResult, error)
}

// MinterFunc adapts a function to Minter.
type MinterFunc func(ctx context.Context, address string) (MintResult, error)

func (f MinterFunc) Mint(ctx context.Context, address string) (MintResult, error) {
	return f(ctx, address)
}

// ErrMinterUnavailable is returned when no minting service is configured.
var ErrMinterUnavailable = errors.New("minting service not configured")

// Unavailable is the Minter used when ledger.mint_url is empty.
var Unavailable Minter = MinterFunc(func(context.Context, string) (MintResult, error) {
	return MintResult{}, ErrMinterUnavailable
})

// HTTPMinter posts {"address": ...} to an external minting service.
type HTTPMinter struct {
	url   string
	token string
	http  *httpclient.Client
}

// NewHTTPMinter returns a Minter for url. Minting is not idempotent, so
// requests are not retried.
func NewHTTPMinter(url, token string, timeout time.Duration) *HTTPMinter {
	return &HTTPMinter{url: url, token: token, http: httpclient.New(timeout, 0, 0)}
}

func (m *HTTPMinter) Mint(ctx context.Context, address string) (MintResult, error) {
	headers := map[string]string{}
	if m.token != "" {
		headers["Authorization"] = "Bearer " + m.token
	}
	var res MintResult
	if err := m.http.DoJSON(ctx, http.MethodPost, m.url, headers, map[string]string{"address": address}, &res); err != nil {
		return MintResult{}, fmt.Errorf("mint request: %w", err)
	}
	return res, nil
}
