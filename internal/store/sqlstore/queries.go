package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

// queries builds the statements for a fixed set of table names.
type queries struct {
	tables  Tables
	dialect goqu.DialectWrapper
	mysql   bool
}

func newQueries(driver string, tables Tables) queries {
	if driver == DriverMySQL {
		return queries{tables: tables, dialect: goqu.Dialect("mysql"), mysql: true}
	}
	return queries{tables: tables, dialect: goqu.Dialect("postgres")}
}

func (q queries) listItems() (string, []any, error) {
	return q.dialect.From(q.tables.Items).Prepared(true).ToSQL()
}

func (q queries) listTrashBins() (string, []any, error) {
	return q.dialect.From(q.tables.TrashBins).Prepared(true).ToSQL()
}

// listTrashBinItemNames joins the link table against items, in link-table order.
func (q queries) listTrashBinItemNames(trashBinID int64) (string, []any, error) {
	return q.dialect.
		From(goqu.T(q.tables.TrashBinItems).As("t")).
		InnerJoin(goqu.T(q.tables.Items).As("i"), goqu.On(goqu.I("t.item_id").Eq(goqu.I("i.id")))).
		Select(goqu.I("i.name")).
		Where(goqu.I("t.trashbin_id").Eq(trashBinID)).
		Prepared(true).
		ToSQL()
}

// incrementSelection is a single conditional upsert. It relies on a unique
// key over (item, location).
func (q queries) incrementSelection(w model.SelectionWrite) (string, []any, error) {
	return q.dialect.
		Insert(q.tables.Selections).
		Rows(goqu.Record{
			"item":           w.Item,
			"location":       w.Location,
			"times_selected": 1,
			"dirty":          w.Dirty,
		}).
		OnConflict(goqu.DoUpdate("item, location", goqu.Record{
			"times_selected": goqu.L("? + 1", goqu.T(q.tables.Selections).Col("times_selected")),
			"dirty":          goqu.L("EXCLUDED.dirty"),
		})).
		Returning("times_selected").
		Prepared(true).
		ToSQL()
}

// upsertSelection is the MySQL upsert. MySQL has no RETURNING, so the
// count is read back with selectTimesSelected in the same transaction.
func (q queries) upsertSelection(w model.SelectionWrite) (string, []any, error) {
	return q.dialect.
		Insert(q.tables.Selections).
		Rows(goqu.Record{
			"item":           w.Item,
			"location":       w.Location,
			"times_selected": 1,
			"dirty":          w.Dirty,
		}).
		OnConflict(goqu.DoUpdate("", goqu.Record{
			"times_selected": goqu.L("? + 1", goqu.I("times_selected")),
			"dirty":          goqu.L("VALUES(?)", goqu.I("dirty")),
		})).
		Prepared(true).
		ToSQL()
}

func (q queries) selectTimesSelected(w model.SelectionWrite) (string, []any, error) {
	return q.dialect.
		From(q.tables.Selections).
		Select("times_selected").
		Where(goqu.Ex{"item": w.Item, "location": w.Location}).
		Prepared(true).
		ToSQL()
}

// session is a store.Session bound to one pooled connection.
type session struct {
	conn *sqlx.Conn
	q    queries
}

func (s *session) ListItems(ctx context.Context) ([]model.Record, error) {
	query, args, err := s.q.listItems()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	records, err := s.selectRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return records, nil
}

func (s *session) ListTrashBins(ctx context.Context) ([]model.Record, error) {
	query, args, err := s.q.listTrashBins()
	if err != nil {
		return nil, fmt.Errorf("build trash bins query: %w", err)
	}
	records, err := s.selectRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list trash bins: %w", err)
	}
	return records, nil
}

func (s *session) ListTrashBinItemNames(ctx context.Context, trashBinID int64) ([]string, error) {
	query, args, err := s.q.listTrashBinItemNames(trashBinID)
	if err != nil {
		return nil, fmt.Errorf("build trash bin items query: %w", err)
	}
	names := []string{}
	if err := s.conn.SelectContext(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("list items of trash bin %d: %w", trashBinID, err)
	}
	return names, nil
}

func (s *session) IncrementSelection(ctx context.Context, w model.SelectionWrite) (int64, error) {
	if s.q.mysql {
		return s.incrementSelectionTx(ctx, w)
	}
	query, args, err := s.q.incrementSelection(w)
	if err != nil {
		return 0, fmt.Errorf("build selection upsert: %w", err)
	}
	var times int64
	if err := s.conn.QueryRowxContext(ctx, query, args...).Scan(&times); err != nil {
		return 0, fmt.Errorf("increment selection %s@%s: %w", w.Item, w.Location, err)
	}
	return times, nil
}

// incrementSelectionTx upserts and reads the count back in one transaction.
// The upsert holds the row lock until commit, so the count read is the one
// this write produced.
func (s *session) incrementSelectionTx(ctx context.Context, w model.SelectionWrite) (int64, error) {
	upsert, upsertArgs, err := s.q.upsertSelection(w)
	if err != nil {
		return 0, fmt.Errorf("build selection upsert: %w", err)
	}
	read, readArgs, err := s.q.selectTimesSelected(w)
	if err != nil {
		return 0, fmt.Errorf("build selection read: %w", err)
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, upsertArgs...); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("increment selection %s@%s: %w", w.Item, w.Location, err)
	}
	var times int64
	if err := tx.QueryRowxContext(ctx, read, readArgs...).Scan(&times); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read selection %s@%s: %w", w.Item, w.Location, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return times, nil
}

func (s *session) selectRecords(ctx context.Context, query string, args []any) ([]model.Record, error) {
	rows, err := s.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	types := make(map[string]string, len(cols))
	for _, c := range cols {
		types[c.Name()] = c.DatabaseTypeName()
	}

	records := []model.Record{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, normalizeRecord(row, types))
	}
	return records, rows.Err()
}
