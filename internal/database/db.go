// Package database provides the SQLite storage layer shared by the
// directory/file index (C3) and the thumbnail cache (C4).
//
// WRITER MODEL:
//
// All mutating statements are serialized by one writer goroutine reading
// off a channel. That goroutine runs each write through a statement
// prepared on the connection pool, and falls back to a dedicated write
// connection only when preparing fails; write transactions (BeginTx) also
// run on the dedicated connection. Readers use the pool, so listing/lookup
// traffic is not queued behind the writer goroutine.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"

	"github.com/galleryhost/gallery/internal/dbinterface"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type writeReq struct {
	ctx   context.Context
	query string
	args  []any
	resCh chan writeRes
}

type writeRes struct {
	result sql.Result
	err    error
}

// DB wraps a SQLite connection pool plus a dedicated write connection.
type DB struct {
	conn      *sql.DB   // connection pool for reads and prepared writes
	writeConn *sql.Conn // dedicated connection for write transactions and unprepared writes
	writeCh   chan writeReq
	stmts     *ttlcache.Cache[string, *sql.Stmt]

	stop      chan struct{}
	closeOnce sync.Once
	writerWG  sync.WaitGroup
	closing   atomic.Bool
	closeErr  error
}

// Tx wraps sql.Tx to provide prepared statement caching for transaction queries.
type Tx struct {
	tx *sql.Tx
	db *DB
}

func (t *Tx) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return t.tx.PrepareContext(ctx, query)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.ExecContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	defer txStmt.Close()
	return txStmt.ExecContext(ctx, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.QueryContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	defer txStmt.Close()
	return txStmt.QueryContext(ctx, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, err := t.db.getStmt(ctx, query)
	if err != nil {
		return t.tx.QueryRowContext(ctx, query, args...)
	}
	txStmt := t.tx.StmtContext(ctx, stmt)
	defer txStmt.Close()
	return txStmt.QueryRowContext(ctx, args...)
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

const (
	defaultBusyTimeout       = 5 * time.Second
	defaultBusyTimeoutMillis = int(defaultBusyTimeout / time.Millisecond)
	connectionSetupTimeout   = 5 * time.Second
	writeChannelBuffer       = 256
)

var driverInit sync.Once

type pragmaExecFn func(ctx context.Context, stmt string) error

func registerConnectionHook() {
	driverInit.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
			defer cancel()

			return applyConnectionPragmas(ctx, func(ctx context.Context, stmt string) error {
				_, err := conn.ExecContext(ctx, stmt, nil)
				if err != nil {
					return fmt.Errorf("connection hook exec %q: %w", stmt, err)
				}
				return nil
			})
		})
	})
}

func applyConnectionPragmas(ctx context.Context, exec pragmaExecFn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeoutMillis),
		"PRAGMA analysis_limit = 400",
	}

	for _, pragma := range pragmas {
		if err := exec(ctx, pragma); err != nil {
			return fmt.Errorf("apply connection pragma %q: %w", pragma, err)
		}
	}

	return nil
}

// New opens (creating if necessary) the SQLite database at databasePath,
// applies pending migrations, and starts the writer goroutine.
func New(databasePath string) (*DB, error) {
	log.Info().Msgf("initializing gallery database at: %s", databasePath)

	dir := filepath.Dir(databasePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	registerConnectionHook()

	conn, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", databasePath, err)
	}

	// Single connection during migrations prevents stale-schema readers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()
	if err := applyConnectionPragmas(ctx, func(ctx context.Context, stmt string) error {
		_, execErr := conn.ExecContext(ctx, stmt)
		return execErr
	}); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply wal checkpoint: %w", err)
	}

	stmtOpts := ttlcache.Options[string, *sql.Stmt]{}.SetDefaultTTL(5 * time.Minute).
		SetDeallocationFunc(func(k string, s *sql.Stmt, _ ttlcache.DeallocationReason) {
			if s != nil {
				_ = s.Close()
			}
		})
	stmtsCache := ttlcache.New(stmtOpts)

	db := &DB{
		conn:    conn,
		writeCh: make(chan writeReq, writeChannelBuffer),
		stmts:   stmtsCache,
		stop:    make(chan struct{}),
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	conn.SetMaxOpenConns(0)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	ctx2, cancel2 := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel2()
	writeConn, err := conn.Conn(ctx2)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire write connection: %w", err)
	}
	db.writeConn = writeConn

	db.writerWG.Add(1)
	go db.writerLoop()

	if _, err := os.Stat(databasePath); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database file was not created at %s: %w", databasePath, err)
	}
	log.Info().Msgf("gallery database initialized at: %s", databasePath)

	return db, nil
}

func (db *DB) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if s, found := db.stmts.Get(query); found && s != nil {
		return s, nil
	}

	s, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	db.stmts.Set(query, s, ttlcache.DefaultTTL)
	return s, nil
}

func (db *DB) execWrite(ctx context.Context, stmt *sql.Stmt, query string, args []any) (sql.Result, error) {
	if stmt != nil {
		return stmt.ExecContext(ctx, args...)
	}
	return db.writeConn.ExecContext(ctx, query, args...)
}

// isWriteQuery does a cheap first-token check to decide whether a query
// must be routed through the single writer goroutine.
func isWriteQuery(query string) bool {
	q := strings.TrimLeftFunc(query, unicode.IsSpace)
	if q == "" {
		return false
	}

	upper := strings.ToUpper(q)
	return strings.HasPrefix(upper, "INSERT") ||
		strings.HasPrefix(upper, "UPDATE") ||
		strings.HasPrefix(upper, "REPLACE") ||
		strings.HasPrefix(upper, "DELETE")
}

// ExecContext routes write queries through the single writer goroutine and
// uses prepared statements when possible. Do not use this for queries with
// RETURNING clauses; use QueryRowContext or QueryContext instead.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if !isWriteQuery(query) {
		stmt, err := db.getStmt(ctx, query)
		if err != nil {
			return db.conn.ExecContext(ctx, query, args...)
		}
		return stmt.ExecContext(ctx, args...)
	}

	if db.closing.Load() {
		return nil, fmt.Errorf("db stopping")
	}

	resCh := make(chan writeRes, 1)
	req := writeReq{ctx: ctx, query: query, args: args, resCh: resCh}
	select {
	case db.writeCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-db.stop:
		return nil, fmt.Errorf("db stopping")
	}

	res := <-resCh
	return res.result, res.err
}

func (db *DB) writerLoop() {
	defer db.writerWG.Done()

	draining := false
	for {
		if draining {
			select {
			case req, ok := <-db.writeCh:
				if !ok {
					return
				}
				db.processWrite(req)
			default:
				return
			}
			continue
		}

		select {
		case req, ok := <-db.writeCh:
			if !ok {
				return
			}
			db.processWrite(req)
		case <-db.stop:
			draining = true
		}
	}
}

func (db *DB) processWrite(req writeReq) {
	stmt, err := db.getStmt(req.ctx, req.query)
	if err != nil {
		res, execErr := db.execWrite(req.ctx, nil, req.query, req.args)
		select {
		case req.resCh <- writeRes{result: res, err: execErr}:
		default:
		}
		return
	}

	res, execErr := db.execWrite(req.ctx, stmt, req.query, req.args)
	select {
	case req.resCh <- writeRes{result: res, err: execErr}:
	default:
	}
}

// QueryContext uses the reader pool and prepared statements.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return db.conn.QueryContext(ctx, query, args...)
	}
	return stmt.QueryContext(ctx, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return db.conn.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

// BeginTx starts a transaction. Read-only transactions use the pooled
// reader connections and run concurrently with writers under WAL; write
// transactions use the dedicated write connection and are serialized with
// every other write.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbinterface.TxQuerier, error) {
	isReadOnly := opts != nil && opts.ReadOnly

	var tx *sql.Tx
	var err error
	if isReadOnly {
		tx, err = db.conn.BeginTx(ctx, opts)
	} else {
		tx, err = db.writeConn.BeginTx(ctx, opts)
	}
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
		defer cancel()
		if _, err := db.conn.ExecContext(ctx, "PRAGMA optimize"); err != nil {
			log.Warn().Err(err).Msg("failed to run PRAGMA optimize during close")
		}

		db.closing.Store(true)
		close(db.stop)
		db.writerWG.Wait()
		db.stmts.Close()

		if db.writeConn != nil {
			if err := db.writeConn.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close write connection")
			}
		}

		db.closeErr = db.conn.Close()
	})

	return db.closeErr
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	ctx := context.Background()

	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	pending, err := db.findPendingMigrations(ctx, files)
	if err != nil {
		return fmt.Errorf("find pending migrations: %w", err)
	}

	if len(pending) == 0 {
		log.Debug().Msg("no pending migrations")
		return nil
	}

	return db.applyMigrations(ctx, pending)
}

func (db *DB) findPendingMigrations(ctx context.Context, allFiles []string) ([]string, error) {
	var pending []string
	for _, filename := range allFiles {
		var count int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count); err != nil {
			return nil, fmt.Errorf("check migration status for %s: %w", filename, err)
		}
		if count == 0 {
			pending = append(pending, filename)
		}
	}
	return pending, nil
}

func (db *DB) applyMigrations(ctx context.Context, migrations []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, filename := range migrations {
		content, err := migrationsFS.ReadFile("migrations/" + filename)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return fmt.Errorf("record migration %s: %w", filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}

	log.Info().Msgf("applied %d migrations", len(migrations))
	return nil
}

// NewForTest wraps an existing sql.DB connection for testing. It skips
// migrations and background goroutines other than the writer loop;
// callers are responsible for the underlying sql.DB's lifecycle and for
// applying schema themselves (e.g. via a temp-file New()).
func NewForTest(conn *sql.DB) *DB {
	stmtOpts := ttlcache.Options[string, *sql.Stmt]{}.SetDefaultTTL(5 * time.Minute).
		SetDeallocationFunc(func(k string, s *sql.Stmt, _ ttlcache.DeallocationReason) {
			if s != nil {
				_ = s.Close()
			}
		})
	stmtsCache := ttlcache.New(stmtOpts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()
	writeConn, err := conn.Conn(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to acquire write connection in NewForTest")
	}

	db := &DB{
		conn:      conn,
		writeConn: writeConn,
		writeCh:   make(chan writeReq, writeChannelBuffer),
		stmts:     stmtsCache,
		stop:      make(chan struct{}),
	}

	db.writerWG.Add(1)
	go db.writerLoop()

	return db
}
