// Package db stores benchmark run history in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// QueryResult represents the result of a database query
type QueryResult struct {
	Columns []string
	Rows    []map[string]interface{}
}

// Client represents a database client
type Client struct {
	db          *sql.DB
	driverName  string
	dataSource  string
	queryTimout time.Duration
}

// NewClient opens the history database and creates its tables
func NewClient(connectionString string) (*Client, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &Client{
		db:          db,
		driverName:  driver,
		dataSource:  dsn,
		queryTimout: 30 * time.Second,
	}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Query executes a SQL query and returns the result
func (c *Client) Query(query string, args ...any) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.queryTimout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]interface{}, 0),
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string for better handling
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// parseConnectionString parses a connection string into driver and DSN
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./test.db
// - path/to/history.db
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)
	if connStr == "" {
		return "", "", fmt.Errorf("empty database path")
	}

	// Handle sqlite:// and sqlite: prefixes
	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}
	if i := strings.Index(connStr, "://"); i > 0 {
		return "", "", fmt.Errorf("unsupported database scheme: %s", connStr[:i])
	}

	return "sqlite3", connStr, nil
}
