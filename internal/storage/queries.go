package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

const getClientID = `SELECT id FROM clients WHERE owner_phone = ? AND name = ?`

func (q *Queries) GetClientID(ctx context.Context, ownerPhone, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, q.rebind(getClientID), ownerPhone, name).Scan(&id)
	return id, err
}

const createClient = `INSERT INTO clients (name, name_folded, owner_phone) VALUES (?, ?, ?) RETURNING id`

type CreateClientParams struct {
	Name       string
	NameFolded string
	OwnerPhone string
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, q.rebind(createClient), arg.Name, arg.NameFolded, arg.OwnerPhone).Scan(&id)
	return id, err
}

const listClientNames = `SELECT id, name, name_folded FROM clients`

type ClientNameRow struct {
	ID         int64
	Name       string
	NameFolded string
}

func (q *Queries) ListClientNames(ctx context.Context) ([]ClientNameRow, error) {
	rows, err := q.db.QueryContext(ctx, listClientNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ClientNameRow
	for rows.Next() {
		var i ClientNameRow
		if err := rows.Scan(&i.ID, &i.Name, &i.NameFolded); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateClientNameFolded = `UPDATE clients SET name_folded = ? WHERE id = ?`

func (q *Queries) UpdateClientNameFolded(ctx context.Context, id int64, nameFolded string) error {
	_, err := q.db.ExecContext(ctx, q.rebind(updateClientNameFolded), nameFolded, id)
	return err
}

const createEntry = `INSERT INTO entries (client_id, item, amount_cents, date, source) VALUES (?, ?, ?, ?, ?) RETURNING id`

type CreateEntryParams struct {
	ClientID    int64
	Item        string
	AmountCents int64
	Date        string
	Source      string
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, q.rebind(createEntry),
		arg.ClientID, arg.Item, arg.AmountCents, arg.Date, arg.Source,
	).Scan(&id)
	return id, err
}

const listHistory = `SELECT e.id, c.name, e.item, e.amount_cents, e.date, COALESCE(e.source, '')
FROM entries e
JOIN clients c ON c.id = e.client_id
WHERE c.owner_phone = ?`

const listHistoryFilter = ` AND c.name_folded LIKE ? ESCAPE '\'`

const listHistoryOrder = ` ORDER BY e.date DESC, e.id DESC LIMIT ?`

type ListHistoryParams struct {
	OwnerPhone string
	// NamePattern is a LIKE pattern over the folded client name; empty means no filter.
	NamePattern string
	Limit       int64
}

type ListHistoryRow struct {
	ID          int64
	ClientName  string
	Item        string
	AmountCents int64
	Date        string
	Source      string
}

func (q *Queries) ListHistory(ctx context.Context, arg ListHistoryParams) ([]ListHistoryRow, error) {
	query := listHistory
	args := []any{arg.OwnerPhone}
	if arg.NamePattern != "" {
		query += listHistoryFilter
		args = append(args, arg.NamePattern)
	}
	query += listHistoryOrder
	args = append(args, arg.Limit)

	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListHistoryRow
	for rows.Next() {
		var i ListHistoryRow
		if err := rows.Scan(&i.ID, &i.ClientName, &i.Item, &i.AmountCents, &i.Date, &i.Source); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL. Queries here never
// carry a literal question mark.
func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// likeContains builds a case-folded "contains" LIKE pattern, escaping the
// wildcard characters of the user's text.
func likeContains(s string) string {
	s = foldName(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
