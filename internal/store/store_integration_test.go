package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/azadi/internal/ledger"
	"github.com/mohammad-safakhou/azadi/internal/store"
)

func TestPostgresLedgerClaimFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pg, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("azadi"),
		tcPostgres.WithUsername("azadi"),
		tcPostgres.WithPassword("azadi"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pg.Terminate(ctx) }()

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("NewWithDSN: %v", err)
	}
	defer st.Close()

	counter := ledger.NewCounter(st, ledger.MinterFunc(func(context.Context, string) (ledger.MintResult, error) {
		return ledger.MintResult{Success: true, TxRef: "0xfeed"}, nil
	}), 5, nil)

	var earned bool
	for i := 0; i < 5; i++ {
		if _, earned, err = counter.RecordMessage(ctx, "u1"); err != nil {
			t.Fatalf("RecordMessage: %v", err)
		}
	}
	if !earned {
		t.Fatalf("5th message should earn a reward")
	}
	if _, err := counter.SetWallet(ctx, "u1", "0x52908400098527886E0F7030069857D2E4169EE7"); err != nil {
		t.Fatalf("SetWallet: %v", err)
	}
	claim, err := counter.Claim(ctx, "u1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claim.TxRef != "0xfeed" || claim.Ledger.EarnedRewardCount != 0 || claim.Ledger.MessageCount != 5 {
		t.Fatalf("claim = %+v", claim)
	}
	if _, err := counter.Claim(ctx, "u1"); !errors.Is(err, ledger.ErrNoReward) {
		t.Fatalf("second claim: %v", err)
	}
}
