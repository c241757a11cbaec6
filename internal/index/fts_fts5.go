//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS journals_fts USING fts5(
			path UNINDEXED,
			branch,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, m journalRow) error {
	if _, err := tx.Exec(`DELETE FROM journals_fts WHERE path = ?`, m.path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	_, err := tx.Exec(`INSERT INTO journals_fts (path, branch, body, tags) VALUES (?, ?, ?, ?)`,
		m.path, m.branch, m.body, strings.Join(m.tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM journals_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search ranks journals with bm25, weighting branch names above tags and
// tags above body text. Every query term must match, as a prefix.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       branch,
		       snippet(journals_fts, 2, '<b>', '</b>', '...', 24)
		FROM journals_fts
		WHERE journals_fts MATCH ?
		ORDER BY bm25(journals_fts, 0.0, 8.0, 1.0, 4.0)
		LIMIT ?
	`, ftsQuery(terms), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
