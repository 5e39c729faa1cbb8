package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres stores every table as positional rows of one relation. Cells are
// a text array indexed 1-based, mirroring sheet columns; row_num 1 holds the
// header. The relation carries no uniqueness beyond its physical key, so the
// store keeps the same non-guarantees as the other backends.
type Postgres struct {
	db *sqlx.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet   TEXT NOT NULL,
	row_num INTEGER NOT NULL,
	cells   TEXT[] NOT NULL,
	PRIMARY KEY (sheet, row_num)
)`

func OpenPostgres(uri string) (*Postgres, error) {
	db, err := sqlx.Open("postgres", uri)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) CreateTable(table string, header []string) error {
	_, err := p.db.Exec(`
		INSERT INTO sheet_rows (sheet, row_num, cells)
		VALUES ($1, 1, $2)
		ON CONFLICT (sheet, row_num) DO NOTHING`,
		table, pq.Array(header))
	return err
}

func (p *Postgres) ReadAll(table string) ([]Row, error) {
	type physRow struct {
		RowNum int            `db:"row_num"`
		Cells  pq.StringArray `db:"cells"`
	}

	var rows []physRow
	err := p.db.Select(&rows, `
		SELECT row_num, cells FROM sheet_rows
		WHERE sheet = $1 ORDER BY row_num`, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].RowNum != 1 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	header := []string(rows[0].Cells)
	out := make([]Row, 0, len(rows)-1)
	for _, r := range rows[1:] {
		out = append(out, rowFromCells(header, []string(r.Cells), r.RowNum))
	}
	return out, nil
}

func (p *Postgres) AppendRow(table string, values []string) error {
	var last int
	err := p.db.Get(&last, `
		SELECT COALESCE(MAX(row_num), 0) FROM sheet_rows WHERE sheet = $1`, table)
	if err != nil {
		return err
	}
	if last == 0 {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	_, err = p.db.Exec(`
		INSERT INTO sheet_rows (sheet, row_num, cells)
		VALUES ($1, $2, $3)`,
		table, last+1, pq.Array(values))
	return err
}

func (p *Postgres) SetCell(table string, rowNum int, column string, value string) error {
	if rowNum < 2 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	header, err := p.header(table)
	if err != nil {
		return err
	}
	col := columnIndex(header, column)
	if col == -1 {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}

	var cells pq.StringArray
	err = p.db.Get(&cells, `
		SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_num = $2`, table, rowNum)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}
	if err != nil {
		return err
	}

	// The row is written back whole: a positional cells[n] update past the
	// array end pads with SQL NULLs, which the text[] scan cannot read back.
	updated := padCells([]string(cells), col+1)
	updated[col] = value
	_, err = p.db.Exec(`
		UPDATE sheet_rows SET cells = $3
		WHERE sheet = $1 AND row_num = $2`, table, rowNum, pq.Array(updated))
	return err
}

func (p *Postgres) DeleteRow(table string, rowNum int) error {
	if rowNum < 2 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	tx, err := p.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM sheet_rows WHERE sheet = $1 AND row_num = $2`, table, rowNum)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	// Renumber in two steps so the shifted rows never collide with the
	// primary key mid-update.
	_, err = tx.Exec(`
		UPDATE sheet_rows SET row_num = -(row_num - 1)
		WHERE sheet = $1 AND row_num > $2`, table, rowNum)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		UPDATE sheet_rows SET row_num = -row_num
		WHERE sheet = $1 AND row_num < 0`, table)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (p *Postgres) header(table string) ([]string, error) {
	var cells pq.StringArray
	err := p.db.Get(&cells, `
		SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_num = 1`, table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if err != nil {
		return nil, err
	}
	return []string(cells), nil
}
