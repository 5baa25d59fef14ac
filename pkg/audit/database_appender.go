package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// DatabaseAppender writes entries to an SQLite database so the audit
// trail survives log rotation and can be queried.
type DatabaseAppender struct {
	mu         sync.Mutex
	db         *sql.DB
	ownsDB     bool
	tableName  string
	level      Level
	insertStmt *sql.Stmt
}

// DatabaseAppenderConfig configures a DatabaseAppender.
type DatabaseAppenderConfig struct {
	// DB is an existing connection. Either DB or Path is required.
	DB *sql.DB

	// Path opens (and owns) an SQLite file when DB is nil.
	Path string

	// TableName defaults to "audit_log".
	TableName string

	Level Level
}

// NewDatabaseAppender creates the appender, the table and the indexes.
func NewDatabaseAppender(config DatabaseAppenderConfig) (*DatabaseAppender, error) {
	db := config.DB
	ownsDB := false
	if db == nil {
		if config.Path == "" {
			return nil, fmt.Errorf("either db connection or path is required")
		}
		var err error
		db, err = sql.Open("sqlite", config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		ownsDB = true
	}

	if config.TableName == "" {
		config.TableName = "audit_log"
	}

	da := &DatabaseAppender{
		db:        db,
		ownsDB:    ownsDB,
		tableName: config.TableName,
		level:     config.Level,
	}

	if err := da.createTable(); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	if err := da.prepareInsert(); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return da, nil
}

func (da *DatabaseAppender) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			pipeline TEXT,
			resource TEXT,
			records_affected INTEGER DEFAULT 0,
			duration_ms INTEGER DEFAULT 0,
			error_message TEXT,
			metadata TEXT,
			data TEXT
		)
	`, da.tableName)

	if _, err := da.db.Exec(query); err != nil {
		return err
	}

	indexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s(timestamp)", da.tableName, da.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_operation ON %s(operation)", da.tableName, da.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status)", da.tableName, da.tableName),
	}
	for _, indexQuery := range indexes {
		if _, err := da.db.Exec(indexQuery); err != nil {
			continue
		}
	}
	return nil
}

func (da *DatabaseAppender) prepareInsert() error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, timestamp, operation, status, pipeline, resource,
			records_affected, duration_ms, error_message, metadata, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, da.tableName)

	stmt, err := da.db.Prepare(query)
	if err != nil {
		return err
	}
	da.insertStmt = stmt
	return nil
}

// Append inserts one entry.
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	da.mu.Lock()
	defer da.mu.Unlock()

	filtered := entry.FilterByLevel(da.level)

	metadataJSON, err := json.Marshal(filtered.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}
	dataJSON, err := json.Marshal(filtered.Data)
	if err != nil {
		dataJSON = []byte("null")
	}

	_, err = da.insertStmt.ExecContext(
		ctx,
		filtered.ID,
		filtered.Timestamp,
		filtered.Operation,
		filtered.Status,
		filtered.Pipeline,
		filtered.Resource,
		filtered.RecordsAffected,
		filtered.Duration.Milliseconds(),
		filtered.ErrorMessage,
		string(metadataJSON),
		string(dataJSON),
	)
	return err
}

// Close releases the statement and, when owned, the connection.
func (da *DatabaseAppender) Close() error {
	da.mu.Lock()
	defer da.mu.Unlock()

	if da.insertStmt != nil {
		da.insertStmt.Close()
	}
	if da.ownsDB {
		return da.db.Close()
	}
	return nil
}

// Count returns the number of stored entries, optionally filtered by
// operation. Used by operators checking the trail and by tests.
func (da *DatabaseAppender) Count(ctx context.Context, operation Operation) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", da.tableName)
	args := []any{}
	if operation != "" {
		query += " WHERE operation = ?"
		args = append(args, operation)
	}

	var count int64
	if err := da.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
