package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/azadi/internal/ledger"
)

var ledgerColumns = []string{"user_id", "message_count", "earned_reward_count", "wallet_address", "updated_at"}

func TestGetMissingRowIsZeroLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id, message_count, earned_reward_count, .* FROM user_ledgers WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	l, err := New(db).Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if l.UserID != "u1" || l.MessageCount != 0 || l.EarnedRewardCount != 0 {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	updated := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM user_ledgers WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns).AddRow("u1", 7, 1, "0xabc", updated))

	l, err := New(db).Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if l.MessageCount != 7 || l.EarnedRewardCount != 1 || l.WalletAddress != "0xabc" || !l.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateLocksAndWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_ledgers \(user_id\) VALUES \(\$1\) ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM user_ledgers WHERE user_id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns).AddRow("u1", 4, 0, "", time.Now()))
	mock.ExpectExec(`UPDATE user_ledgers SET message_count = \$2, earned_reward_count = \$3, wallet_address = \$4, updated_at = \$5 WHERE user_id = \$1`).
		WithArgs("u1", 5, 1, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l, err := New(db).Update(context.Background(), "u1", func(l *ledger.Ledger) error {
		l.MessageCount++
		l.EarnedRewardCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if l.MessageCount != 5 || l.EarnedRewardCount != 1 {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateRollsBackOnCallbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_ledgers`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns).AddRow("u1", 3, 0, "", time.Now()))
	mock.ExpectRollback()

	_, err = New(db).Update(context.Background(), "u1", func(l *ledger.Ledger) error {
		return ledger.ErrNoReward
	})
	if !errors.Is(err, ledger.ErrNoReward) {
		t.Fatalf("expected ErrNoReward, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimWritesAfterCancelledMint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	const wallet = "0x52908400098527886E0F7030069857D2E4169EE7"
	mock.ExpectQuery(`SELECT user_id`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns).AddRow("u1", 5, 1, wallet, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_ledgers`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(ledgerColumns).AddRow("u1", 5, 1, wallet, time.Now()))
	mock.ExpectExec(`UPDATE user_ledgers SET`).
		WithArgs("u1", 5, 0, wallet, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	minter := ledger.MinterFunc(func(context.Context, string) (ledger.MintResult, error) {
		cancel()
		return ledger.MintResult{Success: true, TxRef: "0xtx"}, nil
	})
	claim, err := ledger.NewCounter(New(db), minter, 5, nil).Claim(ctx, "u1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.Ledger.EarnedRewardCount != 0 {
		t.Fatalf("claim = %+v", claim)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
