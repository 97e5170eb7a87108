package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/ledger"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Dialect selects the SQL flavour and driver a repository talks to.
type Dialect string

func (d Dialect) driverName() string {
	return string(d)
}

// SQLRepository implements ledger.Store on top of database/sql.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
	now     func() time.Time
}

// Option customises a repository.
type Option func(*SQLRepository)

// WithClock replaces the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(r *SQLRepository) {
		r.now = now
	}
}

// SQLiteDSN adds the pragmas the bot relies on to a database path.
func SQLiteDSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// PrepareSQLitePath creates the directory holding dbPath.
func PrepareSQLitePath(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLRepository, error) {
	if err := PrepareSQLitePath(dbPath); err != nil {
		return nil, err
	}
	return open(DialectSQLite, SQLiteDSN(dbPath), opts...)
}

func NewPostgresRepository(dsn string, opts ...Option) (*SQLRepository, error) {
	return open(DialectPostgres, dsn, opts...)
}

func open(dialect Dialect, dsn string, opts ...Option) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLRepository{
		db:      db,
		queries: New(db, dialect),
		dialect: dialect,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.foldClientNames(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("fold client names: %w", err)
	}

	return repo, nil
}

// foldClientNames brings name_folded in line with foldName for rows written
// before the column existed. SQL lower() only folds ASCII.
func (r *SQLRepository) foldClientNames(ctx context.Context) error {
	clients, err := r.queries.ListClientNames(ctx)
	if err != nil {
		return err
	}
	fixed := 0
	for _, c := range clients {
		folded := foldName(c.Name)
		if folded == c.NameFolded {
			continue
		}
		if err := r.queries.UpdateClientNameFolded(ctx, c.ID, folded); err != nil {
			return err
		}
		fixed++
	}
	if fixed > 0 {
		slog.InfoContext(ctx, "Client names refolded", "count", fixed)
	}
	return nil
}

func foldName(name string) string {
	return strings.ToLower(name)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ResolveOrCreateClient implements ledger.ClientResolver.
//
// The UNIQUE(name, owner_phone) constraint settles races: when a concurrent
// insert wins, the unique violation is swallowed and the winner's row is read.
func (r *SQLRepository) ResolveOrCreateClient(ctx context.Context, tenant, name string) (int64, error) {
	if tenant == "" {
		return 0, core.ErrEmptyTenant
	}
	if strings.TrimSpace(name) == "" {
		return 0, core.ErrEmptyClient
	}

	id, err := r.queries.GetClientID(ctx, tenant, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get client: %w", err)
	}

	id, err = r.queries.CreateClient(ctx, CreateClientParams{
		Name:       name,
		NameFolded: foldName(name),
		OwnerPhone: tenant,
	})
	if err == nil {
		slog.InfoContext(ctx, "Client created", "id", id, "client", name, "owner_phone", tenant)
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, fmt.Errorf("create client: %w", err)
	}

	slog.DebugContext(ctx, "Client created concurrently, reading existing row", "client", name, "owner_phone", tenant)
	id, err = r.queries.GetClientID(ctx, tenant, name)
	if err != nil {
		return 0, fmt.Errorf("get client after conflict: %w", err)
	}
	return id, nil
}

// AppendEntry implements ledger.EntryWriter.
func (r *SQLRepository) AppendEntry(ctx context.Context, clientID int64, item string, amountCents int64, source core.Source) (int64, error) {
	if strings.TrimSpace(item) == "" {
		return 0, core.ErrEmptyItem
	}
	if amountCents < 0 {
		return 0, core.ErrInvalidAmount
	}
	if !source.IsValid() {
		return 0, core.ErrInvalidSource
	}

	date := core.FormatDate(r.now())
	id, err := r.queries.CreateEntry(ctx, CreateEntryParams{
		ClientID:    clientID,
		Item:        item,
		AmountCents: amountCents,
		Date:        date,
		Source:      source.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"client_id", clientID,
		"item", item,
		"amount_cents", amountCents,
		"date", date,
		"source", source)

	return id, nil
}

// QueryHistory implements ledger.HistoryReader.
func (r *SQLRepository) QueryHistory(ctx context.Context, tenant, filter string) ([]core.HistoryRow, error) {
	params := ListHistoryParams{
		OwnerPhone: tenant,
		Limit:      ledger.HistoryLimit,
	}
	if filter = strings.TrimSpace(filter); filter != "" {
		params.NamePattern = likeContains(filter)
	}

	dbRows, err := r.queries.ListHistory(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	rows := make([]core.HistoryRow, 0, len(dbRows))
	for _, e := range dbRows {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date of entry %d: %w", e.ID, err)
		}
		rows = append(rows, core.HistoryRow{
			EntryID:     e.ID,
			Client:      e.ClientName,
			Item:        e.Item,
			AmountCents: e.AmountCents,
			Date:        date,
			Source:      core.Source(e.Source),
		})
	}

	return rows, nil
}

func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		// Plain SQLITE_CONSTRAINT shows up when extended codes are off; clients
		// carry no other constraint an insert could trip.
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			code == sqlite3.SQLITE_CONSTRAINT
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}

var _ ledger.Store = (*SQLRepository)(nil)
