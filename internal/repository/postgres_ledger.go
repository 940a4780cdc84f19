package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(cred *Credentials) (*PostgresLedger, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresLedger{db: db}, nil
}

func (r *PostgresLedger) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "ledger_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// GetBalance opens the wallet with InitialBalance on first use.
func (r *PostgresLedger) GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if err := ensureWallets(ctx, r.db, wallet); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	query := `SELECT balance FROM wallet_balances WHERE wallet = $1`
	if err := r.db.QueryRowContext(ctx, query, wallet).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresLedger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*domain.Transfer, error) {
	if err := validateTransfer(from, to, amount); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureWallets(ctx, tx, from, to); err != nil {
		return nil, err
	}

	// lock both rows in a fixed order so opposite transfers cannot deadlock
	rows, err := tx.QueryContext(ctx,
		`SELECT wallet, balance FROM wallet_balances WHERE wallet = ANY($1) ORDER BY wallet FOR UPDATE`,
		pq.Array([]string{from, to}))
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}
	balances := make(map[string]decimal.Decimal, 2)
	for rows.Next() {
		var wallet string
		var balance decimal.Decimal
		if err := rows.Scan(&wallet, &balance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		balances[wallet] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if balances[from].LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	update := `UPDATE wallet_balances SET balance = balance + $2, updated_at = NOW() WHERE wallet = $1`
	if _, err := tx.ExecContext(ctx, update, from, amount.Neg()); err != nil {
		return nil, fmt.Errorf("debit %s: %w", from, err)
	}
	if _, err := tx.ExecContext(ctx, update, to, amount); err != nil {
		return nil, fmt.Errorf("credit %s: %w", to, err)
	}

	t := &domain.Transfer{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	insertTransfer := `INSERT INTO transfers (id, from_wallet, to_wallet, amount, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertTransfer, t.ID, t.From, t.To, t.Amount, t.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert transfer: %w", err)
	}

	payload, err := transferPayload(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transfer event: %w", err)
	}
	insertOutbox := `INSERT INTO outbox (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, insertOutbox, t.ID, TransferEventType, []byte(payload)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return t, nil
}

func (r *PostgresLedger) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresLedger) MarkEventAsProcessed(ctx context.Context, id int) error {
	query := `UPDATE outbox SET processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

func (r *PostgresLedger) Close() error {
	return r.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureWallets(ctx context.Context, db execer, wallets ...string) error {
	query := `INSERT INTO wallet_balances (wallet, balance) VALUES ($1, $2) ON CONFLICT (wallet) DO NOTHING`
	for _, w := range wallets {
		if _, err := db.ExecContext(ctx, query, w, InitialBalance); err != nil {
			return fmt.Errorf("open wallet %s: %w", w, err)
		}
	}
	return nil
}
