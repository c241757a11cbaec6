//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Without FTS5 the journals table is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _ journalRow) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search matches journals whose branch, tags or body contain every query
// term, newest first. The snippet is cut around the first term.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	conds := make([]string, len(terms))
	args := []any{terms[0]}
	for i, t := range terms {
		conds[i] = `(branch LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`
		like := "%" + likeEscaper.Replace(t) + "%"
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, branch, substr(body, max(1, instr(lower(body), lower(?)) - 60), 200)
		FROM journals
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY last_updated DESC, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
