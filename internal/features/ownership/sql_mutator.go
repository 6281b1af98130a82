package ownership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLMutator updates an ownership table of the form
//
//	entity_type VARCHAR, entity_id VARCHAR, owner_group_id VARCHAR, updated_at TIMESTAMP
//
// in PostgreSQL or MySQL.
type SQLMutator struct {
	db      *sql.DB
	dialect string // "postgres" or "mysql"
	table   string
}

// OpenSQLMutator connects to dsn with the given driver ("postgres" or "mysql").
func OpenSQLMutator(ctx context.Context, driver, dsn, table string) (*SQLMutator, error) {
	if driver == "postgresql" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported ownership driver %q", driver)
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid ownership table name %q", table)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return NewSQLMutator(db, driver, table), nil
}

func NewSQLMutator(db *sql.DB, dialect, table string) *SQLMutator {
	return &SQLMutator{db: db, dialect: dialect, table: table}
}

func (m *SQLMutator) Close() error {
	return m.db.Close()
}

func (m *SQLMutator) updateQuery() string {
	if m.dialect == "postgres" {
		return fmt.Sprintf(`UPDATE %s SET owner_group_id = $1, updated_at = $2
			WHERE entity_type = $3 AND entity_id = $4 AND owner_group_id IN ($5, $6)`, m.table)
	}
	return fmt.Sprintf(`UPDATE %s SET owner_group_id = ?, updated_at = ?
			WHERE entity_type = ? AND entity_id = ? AND owner_group_id IN (?, ?)`, m.table)
}

func (m *SQLMutator) ownerQuery() string {
	if m.dialect == "postgres" {
		return fmt.Sprintf(`SELECT owner_group_id FROM %s WHERE entity_type = $1 AND entity_id = $2`, m.table)
	}
	return fmt.Sprintf(`SELECT owner_group_id FROM %s WHERE entity_type = ? AND entity_id = ?`, m.table)
}

func (m *SQLMutator) OwningGroup(ctx context.Context, entityType, entityID string) (string, error) {
	var owner string
	err := m.db.QueryRowContext(ctx, m.ownerQuery(), entityType, entityID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read owner: %w", err)
	}
	return owner, nil
}

func (m *SQLMutator) ReassignGroup(ctx context.Context, entityType, entityID, fromGroupID, toGroupID string) error {
	res, err := m.db.ExecContext(ctx, m.updateQuery(),
		toGroupID, time.Now().UTC(), entityType, entityID, fromGroupID, toGroupID)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when nothing changed, so look before
	// calling it a conflict.
	var owner string
	err = m.db.QueryRowContext(ctx, m.ownerQuery(), entityType, entityID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEntityNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read owner: %w", err)
	}
	if owner == toGroupID {
		return nil
	}
	return ErrOwnershipConflict
}
