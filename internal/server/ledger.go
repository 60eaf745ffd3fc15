package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/azadi/internal/ledger"
)

// Ledgers is the participation counter as seen by the HTTP layer.
type Ledgers interface {
	Interval() int
	Get(ctx context.Context, userID string) (ledger.Ledger, error)
	RecordMessage(ctx context.Context, userID string) (ledger.Ledger, bool, error)
	SetWallet(ctx context.Context, userID, address string) (ledger.Ledger, error)
	Claim(ctx context.Context, userID string) (ledger.Claim, error)
}

// LedgerHandler serves forum participation and reward claims.
type LedgerHandler struct {
	Ledgers Ledgers
}

func (h *LedgerHandler) Register(g *echo.Group, secret []byte) {
	auth := withAuth(secret)
	g.POST("/forum/messages", h.message, auth)
	g.GET("/rewards", h.get, auth)
	g.PUT("/rewards/wallet", h.wallet, auth)
	g.POST("/rewards/claim", h.claim, auth)
}

// message records an accepted forum post for the caller.
func (h *LedgerHandler) message(c echo.Context) error {
	var req ForumMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	l, earned, err := h.Ledgers.RecordMessage(c.Request().Context(), userID(c))
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, ForumMessageResponse{
		MessageCount:      l.MessageCount,
		EarnedRewardCount: l.EarnedRewardCount,
		RewardEarned:      earned,
	})
}

func (h *LedgerHandler) get(c echo.Context) error {
	l, err := h.Ledgers.Get(c.Request().Context(), userID(c))
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, ledgerResponse(l, h.Ledgers.Interval()))
}

func (h *LedgerHandler) wallet(c echo.Context) error {
	var req WalletRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	l, err := h.Ledgers.SetWallet(c.Request().Context(), userID(c), req.Address)
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, ledgerResponse(l, h.Ledgers.Interval()))
}

// claim spends one earned reward. The counter only moves when the mint succeeds.
func (h *LedgerHandler) claim(c echo.Context) error {
	res, err := h.Ledgers.Claim(c.Request().Context(), userID(c))
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, ClaimResponse{
		Success:           true,
		TxRef:             res.TxRef,
		EarnedRewardCount: res.Ledger.EarnedRewardCount,
	})
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrUserRequired):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	case errors.Is(err, ledger.ErrInvalidWallet):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid wallet address.").SetInternal(err)
	case errors.Is(err, ledger.ErrNoReward):
		return echo.NewHTTPError(http.StatusConflict, "No reward to claim yet.").SetInternal(err)
	case errors.Is(err, ledger.ErrNoWallet):
		return echo.NewHTTPError(http.StatusConflict, "Add a wallet address before claiming.").SetInternal(err)
	case errors.Is(err, ledger.ErrMinterUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Rewards are not available right now.").SetInternal(err)
	case errors.Is(err, ledger.ErrMintFailed):
		return echo.NewHTTPError(http.StatusBadGateway, "Claim failed. Try again.").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong. Try again.").SetInternal(err)
}
