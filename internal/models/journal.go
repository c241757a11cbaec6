// Package models defines the domain types for gitjournal.
package models

import "time"

// DateLayout is the calendar-date form used in folder keys and the When section.
const DateLayout = "2006-01-02"

// TimestampLayout heads each detailed log entry.
const TimestampLayout = "2006-01-02 15:04"

// BranchContext is the repository state a journal operation runs against.
// It is resolved once per invocation and never mutated afterwards.
type BranchContext struct {
	RepoRoot string    `json:"repo_root"`
	Branch   string    `json:"branch"` // raw branch name as reported by git
	Name     string    `json:"name"`   // normalized, filesystem-safe
	Author   string    `json:"author"` // may be empty
	Head     string    `json:"head"`   // short commit id, empty before the first commit
	Now      time.Time `json:"now"`
	// Status is a compact working-tree summary ("2 modified, 1 untracked").
	Status string `json:"status,omitempty"`
}

// Date returns the ISO calendar date of the context.
func (bc BranchContext) Date() string {
	return bc.Now.Format(DateLayout)
}

// LogEntry is one block of the detailed log. Empty fields render as prompts.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	What      string    `json:"what,omitempty"`
	Why       string    `json:"why,omitempty"`
	Where     string    `json:"where,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// JournalMetadata summarizes a journal for listings and the index.
type JournalMetadata struct {
	Path        string   `json:"path"` // relative to the repository root
	Folder      string   `json:"folder"`
	Branch      string   `json:"branch"`
	Created     string   `json:"created"`
	LastUpdated string   `json:"last_updated"`
	Author      string   `json:"author"`
	Head        string   `json:"head"`
	Entries     int      `json:"entries"`
	Tags        []string `json:"tags,omitempty"`
	Checksum    string   `json:"checksum"`
}

// FileMetadata is what storage reports about a file on disk.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
