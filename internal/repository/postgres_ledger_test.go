package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresLedger(t *testing.T) (*PostgresLedger, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgresLedger(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestPostgresLedger_NewWallet(t *testing.T) {
	repo, cleanup := setupPostgresLedger(t)
	defer cleanup()

	balance, err := repo.GetBalance(context.Background(), "0xNEW")
	require.NoError(t, err)
	assert.True(t, balance.Equal(InitialBalance))
}

func TestPostgresLedger_TransferWritesOutbox(t *testing.T) {
	repo, cleanup := setupPostgresLedger(t)
	defer cleanup()
	ctx := context.Background()

	transfer, err := repo.Transfer(ctx, "0xA", "0xB", decimal.RequireFromString("12.50"))
	require.NoError(t, err)

	a, err := repo.GetBalance(ctx, "0xA")
	require.NoError(t, err)
	b, err := repo.GetBalance(ctx, "0xB")
	require.NoError(t, err)
	assert.Equal(t, "87.50", a.StringFixed(2))
	assert.Equal(t, "112.50", b.StringFixed(2))

	events, err := repo.GetUnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, transfer.ID, events[0].AggregateId)

	var payload TransferEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "0xB", payload.To)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostgresLedger_InsufficientFundsRollsBack(t *testing.T) {
	repo, cleanup := setupPostgresLedger(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Transfer(ctx, "0xA", "0xB", decimal.NewFromInt(150))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	a, err := repo.GetBalance(ctx, "0xA")
	require.NoError(t, err)
	assert.True(t, a.Equal(InitialBalance))

	events, err := repo.GetUnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostgresLedger_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	repo, cleanup := setupPostgresLedger(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Transfer(ctx, "0xA", "0xB", decimal.NewFromInt(10)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	a, err := repo.GetBalance(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.True(t, a.IsZero())
}
