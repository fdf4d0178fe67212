package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
)

const transactionColumns = `id, user_id, amount, currency, plan, status,
			provider_invoice_id, provider_transaction_id, created_at, updated_at`

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO payment_transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Amount,
		tx.Currency,
		tx.Plan,
		tx.Status,
		nullableStringValue(tx.ProviderInvoiceID),
		nullableStringValue(tx.ProviderTransactionID),
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionAlreadyExists
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) AttachInvoice(ctx context.Context, id, invoiceID string, updatedAt time.Time) error {
	query := `
		UPDATE payment_transactions SET
			provider_invoice_id = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, invoiceID, updatedAt, id)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrTransactionNotFound)
}

// TransitionFromPending moves a pending transaction to a terminal status.
// It reports false when the row was no longer pending, which means a
// concurrent verification already settled it. An empty providerTransactionID
// keeps the stored value.
func (r *TransactionRepository) TransitionFromPending(
	ctx context.Context,
	id string,
	status string,
	providerTransactionID string,
	updatedAt time.Time,
) (bool, error) {
	query := `
		UPDATE payment_transactions SET
			status = ?,
			provider_transaction_id = COALESCE(NULLIF(?, ''), provider_transaction_id),
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		status,
		providerTransactionID,
		updatedAt,
		id,
		entity.TransactionStatusPending,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *TransactionRepository) FindByProviderInvoiceID(ctx context.Context, invoiceID string) (*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE provider_invoice_id = ?
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.findOne(ctx, query, invoiceID)
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *TransactionRepository) ListPendingForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE status = ?
			AND (provider_invoice_id IS NOT NULL OR provider_transaction_id IS NOT NULL)
			AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.TransactionStatusPending, before, limit)
}

func (r *TransactionRepository) ListStalePendingWithoutInvoice(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE status = ?
			AND provider_invoice_id IS NULL
			AND provider_transaction_id IS NULL
			AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.TransactionStatusPending, cutoff, limit)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Transaction, error) {
	tx := &entity.Transaction{}
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, args...), tx); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transaction, 0)
	for rows.Next() {
		tx := &entity.Transaction{}
		if err := scanTransaction(rows, tx); err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanTransaction(row rowScanner, tx *entity.Transaction) error {
	var (
		providerInvoiceID     sql.NullString
		providerTransactionID sql.NullString
	)

	if err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Currency,
		&tx.Plan,
		&tx.Status,
		&providerInvoiceID,
		&providerTransactionID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return err
	}

	tx.ProviderInvoiceID = stringPtrFromNull(providerInvoiceID)
	tx.ProviderTransactionID = stringPtrFromNull(providerTransactionID)
	return nil
}
