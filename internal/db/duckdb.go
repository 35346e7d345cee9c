// Package db mirrors the inline datasets into DuckDB for ad-hoc SQL.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-trees/internal/dataset"
	"github.com/joeblew999/plat-trees/internal/feature"
	"github.com/joeblew999/plat-trees/internal/filter"
	"github.com/joeblew999/plat-trees/internal/layers"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	// DBName names the database file under DataDir/duckdb. Empty keeps the
	// database in memory.
	DBName string
}

// Open opens a new DuckDB connection.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DBName != "" {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(dir, cfg.DBName+".duckdb")
	}
	return sql.Open("duckdb", dsn)
}

// Materialize replaces one table per inline dataset with its current
// contents. Tiled datasets have no rows on the server and are skipped.
// It returns the names of the tables written.
func Materialize(ctx context.Context, db *sql.DB, sources []*dataset.Source) ([]string, error) {
	var tables []string
	for _, src := range sources {
		if src.Backend == dataset.Tiled {
			continue
		}
		var err error
		if src.Areas() != nil {
			err = writeAreas(ctx, db, src)
		} else {
			err = writePoints(ctx, db, src)
		}
		if err != nil {
			return tables, fmt.Errorf("materializing %s: %w", src.ID, err)
		}
		tables = append(tables, string(src.ID))
	}
	return tables, nil
}

func writePoints(ctx context.Context, db *sql.DB, src *dataset.Source) error {
	points, err := src.Points()
	if err != nil {
		return err
	}
	schema := filter.SchemaFor(src.ID)

	return inTx(ctx, db, func(tx *sql.Tx) error {
		ddl := fmt.Sprintf(`CREATE OR REPLACE TABLE %q (
			lon DOUBLE, lat DOUBLE, year DOUBLE, species VARCHAR, props VARCHAR)`, src.ID)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q VALUES (?, ?, ?, ?, ?)`, src.ID))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range points {
			var year sql.NullFloat64
			year.Float64, year.Valid = schema.YearOf(f.Attrs)
			var sp sql.NullString
			sp.String, sp.Valid = schema.SpeciesOf(f.Attrs)
			props, err := json.Marshal(f.Attrs)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, f.Point[0], f.Point[1], year, sp, string(props)); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAreas(ctx context.Context, db *sql.DB, src *dataset.Source) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		ddl := fmt.Sprintf(`CREATE OR REPLACE TABLE %q (
			heat DOUBLE, noise_eq DOUBLE, noise_p50 DOUBLE, pm25 DOUBLE, tree_count DOUBLE, props VARCHAR)`, src.ID)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q VALUES (?, ?, ?, ?, ?, ?)`, src.ID))
		if err != nil {
			return err
		}
		defer stmt.Close()

		cols := append(append([]layers.Metric(nil), layers.Metrics...), "tree_count")
		for _, f := range src.Areas().Features {
			if f == nil {
				continue
			}
			attrs := feature.Attrs(f.Properties)
			args := make([]any, 0, len(cols)+1)
			for _, c := range cols {
				var v sql.NullFloat64
				v.Float64, v.Valid = attrs.Number(string(c))
				args = append(args, v)
			}
			props, err := json.Marshal(f.Properties)
			if err != nil {
				return err
			}
			args = append(args, string(props))
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
