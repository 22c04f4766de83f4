package main

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	strftime "github.com/ncruces/go-strftime"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/gosqlvec/vecvtab/pkg/vtab"
)

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vecsql",
	Short: "CLI for the vector_search SQLite virtual table",
	Long:  `A command-line interface for creating vector_search virtual tables and running k-NN queries against them.`,
}

var createCmd = &cobra.Command{
	Use:   "create <table> <column> <dim> <metric>",
	Short: "Create a vector_search virtual table",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, column, dimStr, metric := args[0], args[1], args[2], args[3]
		dim, err := strconv.Atoi(dimStr)
		if err != nil {
			return fmt.Errorf("invalid dim %q: %w", dimStr, err)
		}
		maxElements, _ := cmd.Flags().GetInt("max-elements")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		spaceLiteral := fmt.Sprintf(`{"name":"%s","dim":%d,"distance_type":"%s"}`, column, dim, metric)
		optsLiteral := fmt.Sprintf(`{"max_elements":%d}`, maxElements)

		stmt := fmt.Sprintf("CREATE VIRTUAL TABLE %s USING vector_search('%s', '%s')", table, spaceLiteral, optsLiteral)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create virtual table: %w", err)
		}

		logf("created %s(%s) dim=%d metric=%s max_elements=%s", table, column, dim, metric, humanize.Comma(int64(maxElements)))
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <table> <column> <rowid> <vector>",
	Short: "Insert a vector (comma-separated floats) under an explicit rowid",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, column, rowidStr, vectorStr := args[0], args[1], args[2], args[3]
		rowid, err := strconv.ParseInt(rowidStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rowid %q: %w", rowidStr, err)
		}
		vec, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		start := time.Now()
		if _, err := db.Exec(fmt.Sprintf("INSERT INTO %s(rowid, %s) VALUES (?, ?)", table, column), rowid, encodeVector(vec)); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		logf("inserted rowid=%d dim=%d in %s", rowid, len(vec), time.Since(start))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <table> <column> <k> <vector>",
	Short: "Run a k-NN search against a vector_search table",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, column, kStr, vectorStr := args[0], args[1], args[2], args[3]
		k, err := strconv.ParseInt(kStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid k %q: %w", kStr, err)
		}
		vec, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		query := fmt.Sprintf("SELECT rowid, distance FROM %s WHERE knn_search(%s, knn_param(?, ?))", table, column)
		rows, err := db.Query(query, encodeVector(vec), k)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		defer rows.Close()

		fmt.Printf("%-12s %s\n", "rowid", "distance")
		for rows.Next() {
			var rowid int64
			var dist float64
			if err := rows.Scan(&rowid, &dist); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			fmt.Printf("%-12d %.6f\n", rowid, dist)
		}
		return rows.Err()
	},
}

func openDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	if err := vtab.Register(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("register vector_search: %w", err)
	}
	return db, nil
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(b[i*4:i*4+4], math.Float32bits(f))
	}
	return b
}

// logf prints a timestamped status line when verbose output is requested.
// Timestamps use strftime formatting for parity with the rest of the
// project's log lines; color is skipped when stderr isn't a terminal.
func logf(format string, a ...any) {
	if !verbose {
		return
	}
	ts, err := strftime.Format("%Y-%m-%d %H:%M:%S", time.Now())
	if err != nil {
		ts = time.Now().Format(time.RFC3339)
	}
	prefix := ts
	if isatty.IsTerminal(os.Stderr.Fd()) {
		prefix = "\x1b[2m" + ts + "\x1b[0m"
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, fmt.Sprintf(format, a...))
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "vecsql.db", "path to the sqlite database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print timestamped progress to stderr")

	createCmd.Flags().Int("max-elements", 100000, "HNSW max_elements for the new index")

	rootCmd.AddCommand(createCmd, insertCmd, searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
