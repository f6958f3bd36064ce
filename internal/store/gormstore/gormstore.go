package gormstore

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode      = "23505"
	sqliteConstraintCode       = 19
	constraintAccountsUsername = "idx_accounts_username"

	errorOperationStore      = "store"
	errorSubjectAccount      = "account"
	errorSubjectListing      = "listing"
	errorSubjectFavorite     = "favorite"
	errorSubjectConversation = "conversation"
	errorSubjectMessage      = "message"
	errorSubjectProject      = "project"
	errorSubjectMembership   = "membership"
	errorSubjectRace         = "race"

	errorCodeCreate    = "create"
	errorCodeDelete    = "delete"
	errorCodeDuplicate = "duplicate"
	errorCodeGet       = "get"
	errorCodeInsert    = "insert"
	errorCodeInvalid   = "invalid"
	errorCodeList      = "list"
	errorCodeSearch    = "search"
	errorCodeUpdate    = "update"
	errorCodeUpsert    = "upsert"
)

// Store implements loppet.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loppet.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func wrapStoreError(subject string, code string, err error) error {
	return loppet.WrapError(errorOperationStore, subject, code, err)
}

// isUniqueViolation classifies a duplicate-key failure, optionally narrowed
// to one named constraint. SQLite reports a bare constraint code, so the
// narrowing only applies on Postgres.
func isUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
