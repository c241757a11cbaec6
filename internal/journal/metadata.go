package journal

import (
	"path"

	"github.com/starford/gitjournal/internal/checksum"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
)

// Describe parses a journal and summarizes it. relPath is the journal file
// path relative to the repository root.
func Describe(relPath string, data []byte) (*models.JournalMetadata, *parser.Document, error) {
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, nil, err
	}

	folder := path.Base(path.Dir(relPath))
	_, name, _ := SplitFolderKey(folder)

	who := Fields(doc.Section(parser.Who).Body)
	when := Fields(doc.Section(parser.When).Body)

	branch := when[labelBranch]
	if branch == "" {
		branch = name
	}

	return &models.JournalMetadata{
		Path:        relPath,
		Folder:      folder,
		Branch:      branch,
		Created:     when[labelCreated],
		LastUpdated: when[labelLastUpdated],
		Author:      who[labelAuthor],
		Head:        when[labelHead],
		Entries:     len(doc.Entries()),
		Tags:        doc.Tags(),
		Checksum:    checksum.Sum(data),
	}, doc, nil
}
