package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omeguy/tracy/internal/models"
)

// PostgresStore keeps the opened/closed trade tables in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPool builds a pgx pool with modest limits suited to a handful of
// sessions sharing one database.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.NewWithConfig(ctx, cfg)
}

// CreateTables creates the two trade tables if absent. No external migration
// tool; the schema is small and additive.
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	stmts := []string{
		`create table if not exists opened_trades (
			ticket bigint primary key,
			symbol text not null,
			direction text not null,
			lot numeric not null,
			magic int not null,
			stop_loss numeric not null default 0,
			take_profit numeric not null default 0,
			deviation int not null default 0,
			open_price numeric not null,
			open_time timestamptz not null,
			status text not null
		);`,
		`create index if not exists opened_trades_symbol_idx on opened_trades(symbol);`,
		`create table if not exists closed_trades (
			ticket bigint primary key,
			symbol text not null,
			direction text not null,
			lot numeric not null,
			magic int not null,
			stop_loss numeric not null default 0,
			take_profit numeric not null default 0,
			deviation int not null default 0,
			open_price numeric not null,
			open_time timestamptz not null,
			close_price numeric not null,
			close_time timestamptz not null,
			profit_loss numeric not null,
			status text not null
		);`,
		`create index if not exists closed_trades_symbol_idx on closed_trades(symbol);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: create tables: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertOpened(ctx context.Context, p *models.Position) error {
	_, err := s.pool.Exec(ctx, `
		insert into opened_trades(
			ticket, symbol, direction, lot, magic,
			stop_loss, take_profit, deviation, open_price, open_time, status
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		on conflict (ticket) do nothing
	`,
		p.Ticket, p.Symbol, string(p.Direction), p.Lot, p.Magic,
		p.StopLoss, p.TakeProfit, p.Deviation, p.OpenPrice, p.OpenTime, p.Status,
	)
	return err
}

func (s *PostgresStore) UpdateOpened(ctx context.Context, p *models.Position) error {
	_, err := s.pool.Exec(ctx, `
		update opened_trades
		set stop_loss=$2, take_profit=$3, status=$4
		where ticket=$1
	`, p.Ticket, p.StopLoss, p.TakeProfit, p.Status)
	return err
}

func (s *PostgresStore) ListOpened(ctx context.Context, symbol string) ([]models.Position, error) {
	rows, err := s.pool.Query(ctx, `
		select ticket, symbol, direction, lot, magic,
			stop_loss, take_profit, deviation, open_price, open_time, status
		from opened_trades
		where symbol = $1
		order by open_time
	`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var p models.Position
		var direction string
		if err := rows.Scan(
			&p.Ticket, &p.Symbol, &direction, &p.Lot, &p.Magic,
			&p.StopLoss, &p.TakeProfit, &p.Deviation, &p.OpenPrice, &p.OpenTime, &p.Status,
		); err != nil {
			return nil, err
		}
		p.Direction = models.Direction(direction)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MoveToClosed runs delete-from-opened and insert-into-closed in a single
// transaction so a concurrent reader never sees the ticket in both tables or
// in neither.
func (s *PostgresStore) MoveToClosed(ctx context.Context, p *models.Position) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `delete from opened_trades where ticket = $1`, p.Ticket); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		insert into closed_trades(
			ticket, symbol, direction, lot, magic,
			stop_loss, take_profit, deviation, open_price, open_time,
			close_price, close_time, profit_loss, status
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		on conflict (ticket) do nothing
	`,
		p.Ticket, p.Symbol, string(p.Direction), p.Lot, p.Magic,
		p.StopLoss, p.TakeProfit, p.Deviation, p.OpenPrice, p.OpenTime,
		p.ClosePrice, p.CloseTime, p.ProfitLoss, p.Status,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListClosed(ctx context.Context, symbol string) ([]models.Position, error) {
	rows, err := s.pool.Query(ctx, `
		select ticket, symbol, direction, lot, magic,
			stop_loss, take_profit, deviation, open_price, open_time,
			close_price, close_time, profit_loss, status
		from closed_trades
		where symbol = $1
		order by close_time
	`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var p models.Position
		var direction string
		if err := rows.Scan(
			&p.Ticket, &p.Symbol, &direction, &p.Lot, &p.Magic,
			&p.StopLoss, &p.TakeProfit, &p.Deviation, &p.OpenPrice, &p.OpenTime,
			&p.ClosePrice, &p.CloseTime, &p.ProfitLoss, &p.Status,
		); err != nil {
			return nil, err
		}
		p.Direction = models.Direction(direction)
		out = append(out, p)
	}
	return out, rows.Err()
}
