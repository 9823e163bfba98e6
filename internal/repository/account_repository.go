package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/eaglebank/ledger/internal/ledger"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint violation.
const uniqueViolation = "23505"

// AccountRepository is the PostgreSQL write store and source of truth for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ ledger.AccountStore = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	query := `
		INSERT INTO accounts (account_number, name, pin, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.AccountNumber, account.Name, account.Pin, account.Balance,
		account.Version, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ledger.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (*ledger.Account, error) {
	query := `
		SELECT account_number, name, pin, balance, version, created_at, updated_at
		FROM accounts
		WHERE account_number = $1
	`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return r.SaveAll(ctx, account)
}

// SaveAll updates the balances of accounts in a single transaction. Each row is
// only written when its version still matches; versions on the passed accounts
// are bumped once the transaction has committed.
func (r *AccountRepository) SaveAll(ctx context.Context, accounts ...*ledger.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		UPDATE accounts
		SET balance = $2, version = version + 1, updated_at = $3
		WHERE account_number = $1 AND version = $4
	`
	for _, account := range accounts {
		result, err := tx.ExecContext(ctx, query, account.AccountNumber, account.Balance, account.UpdatedAt, account.Version)
		if err != nil {
			return fmt.Errorf("failed to update account %s: %w", account.AccountNumber, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return staleOrMissing(ctx, tx, account.AccountNumber)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	for _, account := range accounts {
		account.Version++
	}
	return nil
}

func (r *AccountRepository) FindAll(ctx context.Context) ([]*ledger.Account, error) {
	query := `
		SELECT account_number, name, pin, balance, version, created_at, updated_at
		FROM accounts
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*ledger.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var account ledger.Account
	err := row.Scan(
		&account.AccountNumber, &account.Name, &account.Pin, &account.Balance,
		&account.Version, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// staleOrMissing tells apart an update that matched no row because the account
// is gone from one that lost a version race.
func staleOrMissing(ctx context.Context, tx *sql.Tx, accountNumber string) error {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check account %s: %w", accountNumber, err)
	}
	if !exists {
		return ledger.ErrAccountNotFound
	}
	return fmt.Errorf("account %s: %w", accountNumber, ledger.ErrConcurrentModification)
}
