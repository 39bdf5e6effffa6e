package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
)

// SQLiteStore archives closed trades so lifetime statistics survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			quantity REAL NOT NULL,
			realized_pl REAL NOT NULL,
			realized_pl_percent REAL NOT NULL,
			closed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol);`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_closed_at ON closed_trades(closed_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO closed_trades (symbol, entry_price, exit_price, quantity, realized_pl, realized_pl_percent, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol, trade.EntryPrice, trade.ExitPrice, trade.Quantity,
		trade.RealizedPL, trade.RealizedPLPercent, trade.ClosedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// ListTrades returns archived trades oldest first. limit <= 0 means no limit.
func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.ClosedTrade, error) {
	query := `SELECT symbol, entry_price, exit_price, quantity, realized_pl, realized_pl_percent, closed_at
		FROM closed_trades ORDER BY closed_at ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		if err := rows.Scan(&t.Symbol, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&t.RealizedPL, &t.RealizedPLPercent, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
