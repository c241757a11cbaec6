package index

import "github.com/starford/gitjournal/internal/models"

// JournalIndex defines the interface for journal indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type JournalIndex interface {
	UpsertJournal(meta models.JournalMetadata, body string) error
	DeleteJournal(path string) error
	GetChecksum(path string) (string, error)
	GetJournal(path string) (*models.JournalMetadata, error)
	FindByBranch(branch string) (*models.JournalMetadata, error)
	ListJournals(limit, offset int, sort string) ([]models.JournalMetadata, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies JournalIndex at compile time.
var _ JournalIndex = (*DB)(nil)
