package replay

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckReader loads recorded codes with a DuckDB query, so CSV, Parquet and database
// recordings replay the same way. The query must return a single integer column in
// acquisition order.
type DuckReader struct {
	dataSourceName string
	db             *sql.DB
}

func NewDuckReader(dataSourceName string) *DuckReader {
	return &DuckReader{
		dataSourceName: dataSourceName,
	}
}

func (r *DuckReader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *DuckReader) Close() {
	_ = r.db.Close()
}

// Exec runs a statement, mostly useful to stage a recording into a table.
func (r *DuckReader) Exec(ctx context.Context, statement string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, statement, args...); err != nil {
		return fmt.Errorf("error executing statement: %w", err)
	}
	return nil
}

func (r *DuckReader) LoadCodes(ctx context.Context, query string, handler func(code uint16) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var code int64
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		if code < 0 || code > 0xFFFF {
			return fmt.Errorf("code %d out of range", code)
		}
		if err := handler(uint16(code)); err != nil {
			return fmt.Errorf("error processing code: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}
	return nil
}

// Load collects the whole query result into a replayable Recording.
func (r *DuckReader) Load(ctx context.Context, query string) (*Recording, error) {
	var codes []uint16
	err := r.LoadCodes(ctx, query, func(code uint16) error {
		codes = append(codes, code)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewRecording(codes), nil
}
