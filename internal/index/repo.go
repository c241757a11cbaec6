package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Branch  string `json:"branch"`
	Snippet string `json:"snippet"`
}

// journalRow is the searchable part of a journal handed to the FTS table.
type journalRow struct {
	path   string
	branch string
	body   string
	tags   []string
}

const selectColumns = `path, folder, branch, created, last_updated, author, head, entries, tags, checksum`

// UpsertJournal inserts or replaces a journal and its FTS entry within a transaction.
func (db *DB) UpsertJournal(m models.JournalMetadata, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO journals (path, folder, branch, created, last_updated, author, head, entries, tags, checksum, body, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			folder       = excluded.folder,
			branch       = excluded.branch,
			created      = excluded.created,
			last_updated = excluded.last_updated,
			author       = excluded.author,
			head         = excluded.head,
			entries      = excluded.entries,
			tags         = excluded.tags,
			checksum     = excluded.checksum,
			body         = excluded.body,
			indexed_at   = excluded.indexed_at
	`, m.Path, m.Folder, m.Branch, m.Created, m.LastUpdated, m.Author, m.Head, m.Entries,
		string(tagsJSON), m.Checksum, body)
	if err != nil {
		return fmt.Errorf("index: upsert journal: %w", err)
	}

	if err := ftsUpsert(tx, journalRow{path: m.Path, branch: m.Branch, body: body, tags: tags}); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteJournal removes a journal and its FTS entry.
func (db *DB) DeleteJournal(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM journals WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete journal: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a journal, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM journals WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed journal.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM journals`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetJournal returns the metadata of one journal.
func (db *DB) GetJournal(path string) (*models.JournalMetadata, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM journals WHERE path = ?`, path)
	return scanOne(row)
}

// FindByBranch returns the journal recorded for a raw branch name, oldest
// folder first.
func (db *DB) FindByBranch(branch string) (*models.JournalMetadata, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM journals WHERE branch = ? ORDER BY folder LIMIT 1`, branch)
	return scanOne(row)
}

// ListJournals returns a page of journals and the total count. sort is one
// of "last_updated" (default, newest first), "created" or "branch".
func (db *DB) ListJournals(limit, offset int, sort string) ([]models.JournalMetadata, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	order := "last_updated DESC, path"
	switch sort {
	case "created":
		order = "created DESC, path"
	case "branch":
		order = "branch, path"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM journals`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count journals: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+selectColumns+` FROM journals ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list journals: %w", err)
	}
	defer rows.Close()

	var out []models.JournalMetadata
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*models.JournalMetadata, error) {
	m, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return m, err
}

func scan(s scanner) (*models.JournalMetadata, error) {
	var (
		m    models.JournalMetadata
		tags string
	)
	if err := s.Scan(&m.Path, &m.Folder, &m.Branch, &m.Created, &m.LastUpdated,
		&m.Author, &m.Head, &m.Entries, &tags, &m.Checksum); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tags), &m.Tags)
	return &m, nil
}
