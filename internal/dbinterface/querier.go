// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbinterface provides database interfaces to avoid import cycles.
// This package has no dependencies and can be imported by both database
// implementations and models/stores.
package dbinterface

import (
	"context"
	"database/sql"
	"strings"
)

// Querier is the centralized interface for database operations.
// It is implemented by *sql.DB, *sql.Tx, and *database.DB.
// This allows stores and repositories to accept any of these types
// and enables transaction support without code duplication.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxQuerier is a Querier that can be committed or rolled back. Returned by
// database.DB.BeginTx so callers get prepared-statement caching plus
// transaction control without depending on *sql.Tx directly.
type TxQuerier interface {
	Querier
	Commit() error
	Rollback() error
}

// TxBeginner is an interface for types that can begin transactions.
// It is implemented by *sql.DB and *database.DB.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (TxQuerier, error)
}

// BuildQueryWithPlaceholders expands a query template containing a single
// "%s" placeholder group into `rows` repetitions of a `(?, ?, ...)` group
// with `cols` columns each, comma-separated. Used to build bulk
// INSERT ... VALUES statements (e.g. the thumbnail pipeline's batched
// record writes) without string-building placeholder groups by hand at
// every call site.
func BuildQueryWithPlaceholders(template string, cols, rows int) string {
	if rows <= 0 {
		return strings.Replace(template, "%s", "", 1)
	}

	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	groups := make([]string, rows)
	for i := range groups {
		groups[i] = group
	}

	return strings.Replace(template, "%s", strings.Join(groups, ", "), 1)
}
