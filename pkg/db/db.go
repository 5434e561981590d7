// Package db wraps a SQLite database used to cache EDGAR downloads and
// reconstructed statements, so repeat views of a company do not go back
// to the network or re-run the pipeline.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xbrlview/xbrlview/pkg/edgar"
	"github.com/xbrlview/xbrlview/pkg/statement"
)

// DB wraps a SQLite database connection for filing and statement storage
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the required tables if they don't exist
func (db *DB) createTables() error {
	filingsSQL := `
		CREATE TABLE IF NOT EXISTS filings (
			accession_number TEXT PRIMARY KEY,
			cik TEXT NOT NULL,
			form_name TEXT NOT NULL,
			filing_date TEXT NOT NULL,
			filing BLOB NOT NULL,
			primary_document BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(cik, form_name)
		);
	`
	if _, err := db.conn.Exec(filingsSQL); err != nil {
		return fmt.Errorf("failed to create filings table: %w", err)
	}

	attachmentsSQL := `
		CREATE TABLE IF NOT EXISTS attachments (
			accession_number TEXT NOT NULL,
			name TEXT NOT NULL,
			content BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(accession_number, name)
		);
	`
	if _, err := db.conn.Exec(attachmentsSQL); err != nil {
		return fmt.Errorf("failed to create attachments table: %w", err)
	}

	statementsSQL := `
		CREATE TABLE IF NOT EXISTS statements (
			cik TEXT NOT NULL,
			role_id TEXT NOT NULL,
			company_name TEXT DEFAULT '',
			data BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(cik, role_id)
		);
	`
	if _, err := db.conn.Exec(statementsSQL); err != nil {
		return fmt.Errorf("failed to create statements table: %w", err)
	}

	// Create search cache table using FTS for efficient searching
	searchCacheSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS search_cache USING fts5(
			title,
			path,
			created_at UNINDEXED,
			updated_at UNINDEXED
		);
	`
	if _, err := db.conn.Exec(searchCacheSQL); err != nil {
		return fmt.Errorf("failed to create search_cache table: %w", err)
	}

	return nil
}

// StoreFiling stores a filing's metadata and primary document
func (db *DB) StoreFiling(cik string, filing edgar.Filing, document []byte) error {
	filingJSON, err := json.Marshal(filing)
	if err != nil {
		return fmt.Errorf("failed to serialize filing: %w", err)
	}
	query := `
		INSERT OR REPLACE INTO filings (cik, form_name, accession_number, filing_date, filing, primary_document)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.conn.Exec(query, cik, filing.Form, filing.AccessionNumber, filing.FilingDate, filingJSON, document); err != nil {
		return fmt.Errorf("failed to store filing: %w", err)
	}

	return nil
}

// GetFiling retrieves a filing and its primary document by CIK and form name
func (db *DB) GetFiling(cik, formName string) (*edgar.Filing, []byte, error) {
	query := `
		SELECT filing, primary_document
		FROM filings
		WHERE cik = ? AND form_name = ?
	`

	var filingJSON, document []byte
	err := db.conn.QueryRow(query, cik, formName).Scan(&filingJSON, &document)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("filing not found for CIK %s, form %s", cik, formName)
		}
		return nil, nil, fmt.Errorf("failed to query filing: %w", err)
	}

	var filing edgar.Filing
	if err := json.Unmarshal(filingJSON, &filing); err != nil {
		return nil, nil, fmt.Errorf("failed to decode filing: %w", err)
	}

	return &filing, document, nil
}

// StoreAttachment stores one linkbase or schema file for an accession
func (db *DB) StoreAttachment(accessionNumber, name string, content []byte) error {
	query := `
		INSERT OR REPLACE INTO attachments (accession_number, name, content)
		VALUES (?, ?, ?)
	`
	if _, err := db.conn.Exec(query, accessionNumber, name, content); err != nil {
		return fmt.Errorf("failed to store attachment: %w", err)
	}
	return nil
}

// ListAttachments returns the stored attachments for an accession as a
// name to content map
func (db *DB) ListAttachments(accessionNumber string) (map[string][]byte, error) {
	query := `
		SELECT name, content
		FROM attachments
		WHERE accession_number = ?
	`

	rows, err := db.conn.Query(query, accessionNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	attachments := make(map[string][]byte)
	for rows.Next() {
		var name string
		var content []byte
		if err := rows.Scan(&name, &content); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		attachments[name] = content
	}
	return attachments, nil
}

// StoreStatement stores one reconstructed statement for a company
func (db *DB) StoreStatement(cik, companyName string, st *statement.Statement) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO statements (cik, role_id, company_name, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	if _, err := db.conn.Exec(query, cik, st.RoleID, companyName, data); err != nil {
		return fmt.Errorf("failed to store statement: %w", err)
	}

	return nil
}

// GetStatement retrieves one reconstructed statement by CIK and role
func (db *DB) GetStatement(cik, roleID string) (*statement.Statement, error) {
	query := "SELECT data FROM statements WHERE cik = ? AND role_id = ?"

	var data []byte
	err := db.conn.QueryRow(query, cik, roleID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("statement not found for CIK %s, role %s", cik, roleID)
		}
		return nil, fmt.Errorf("failed to query statement: %w", err)
	}

	var st statement.Statement
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statement: %w", err)
	}

	return &st, nil
}

// ListStatementRoles returns the role IDs with stored statements for a
// CIK, paired with their display titles
func (db *DB) ListStatementRoles(cik string) (map[string]string, error) {
	query := "SELECT role_id, data FROM statements WHERE cik = ? ORDER BY role_id"

	rows, err := db.conn.Query(query, cik)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	roles := make(map[string]string)
	for rows.Next() {
		var roleID string
		var data []byte
		if err := rows.Scan(&roleID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan statement row: %w", err)
		}
		var st statement.Statement
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statement: %w", err)
		}
		roles[roleID] = st.Title
	}
	return roles, nil
}

// AreStatementsStale checks if a company's stored statements are older
// than the specified duration
func (db *DB) AreStatementsStale(cik string, maxAge time.Duration) (bool, error) {
	query := "SELECT MIN(updated_at) FROM statements WHERE cik = ?"

	var updatedAt sql.NullString
	err := db.conn.QueryRow(query, cik).Scan(&updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return true, nil
		}
		return false, fmt.Errorf("failed to query statement timestamp: %w", err)
	}
	if !updatedAt.Valid {
		return true, nil // No statements exist, consider stale
	}

	// Parse the timestamp (SQLite CURRENT_TIMESTAMP returns RFC3339 format)
	timestamp, err := time.Parse(time.RFC3339, updatedAt.String)
	if err != nil {
		// Older sqlite builds store "2006-01-02 15:04:05" instead
		timestamp, err = time.Parse("2006-01-02 15:04:05", updatedAt.String)
		if err != nil {
			return false, fmt.Errorf("failed to parse timestamp: %w", err)
		}
	}

	return time.Since(timestamp) > maxAge, nil
}

// SearchCacheItem represents a single search cache entry
type SearchCacheItem struct {
	Title string
	Path  string
}

// StoreSearchCacheItems stores multiple search cache items in batches
func (db *DB) StoreSearchCacheItems(items []SearchCacheItem) error {
	const batchSize = 1000

	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		if err := db.storeSearchCacheBatch(items[i:end]); err != nil {
			return fmt.Errorf("failed to store search cache batch: %w", err)
		}
	}

	return nil
}

// storeSearchCacheBatch stores a batch of search cache items in a single transaction
func (db *DB) storeSearchCacheBatch(items []SearchCacheItem) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO search_cache (title, path, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(item.Title, item.Path); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SearchCache performs FTS prefix search on cached companies
func (db *DB) SearchCache(query string, limit int) ([]SearchCacheItem, error) {
	prefixQuery := query + "*"
	sqlQuery := `
		SELECT title, path
		FROM search_cache
		WHERE search_cache MATCH ?
		ORDER BY rank
		LIMIT ?
	`

	rows, err := db.conn.Query(sqlQuery, prefixQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search cache: %w", err)
	}
	defer rows.Close()

	var results []SearchCacheItem
	for rows.Next() {
		var result SearchCacheItem
		if err := rows.Scan(&result.Title, &result.Path); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}
