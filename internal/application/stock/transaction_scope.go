package stock

import (
	"context"

	"github.com/inventra/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back as a unit - a submit either writes every derived ledger entry or
// none, and a cancel removes every entry for the reference or none.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the stock repositories within
// a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// LedgerRepo returns the ledger entry repository scoped to the current transaction
	LedgerRepo() stock.LedgerEntryRepository
	// EntryRepo returns the stock entry document repository scoped to the current transaction
	EntryRepo() stock.StockEntryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	ledgerRepo stock.LedgerEntryRepository
	entryRepo  stock.StockEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(ledgerRepo stock.LedgerEntryRepository, entryRepo stock.StockEntryRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		ledgerRepo: ledgerRepo,
		entryRepo:  entryRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// LedgerRepo returns the ledger entry repository.
func (s *NoOpTransactionScope) LedgerRepo() stock.LedgerEntryRepository {
	return s.ledgerRepo
}

// EntryRepo returns the stock entry document repository.
func (s *NoOpTransactionScope) EntryRepo() stock.StockEntryRepository {
	return s.entryRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
