package index

import (
	"database/sql"
	"strings"
)

const defaultSearchLimit = 20

// searchTerms splits a user query into bare words. Quotes and FTS5
// operators are stripped so input like "feature-login" is never parsed as
// query syntax.
func searchTerms(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '"', '(', ')', '*', '^', ':', '+':
			return true
		}
		return false
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ftsQuery turns terms into an FTS5 expression matching every term as a
// quoted prefix.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"*`
	}
	return strings.Join(quoted, " ")
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Branch, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
