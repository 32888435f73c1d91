package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// snapshotEntry keeps pointer fields so a missing key can be told apart from an empty one.
type snapshotEntry struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	ISBN   *string `json:"isbn"`
}

func encodeSnapshot(books []Book) ([]byte, error) {
	if books == nil {
		books = []Book{}
	}
	return json.MarshalIndent(books, "", "  ")
}

func decodeSnapshot(data []byte) ([]Book, error) {
	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, errors.New("snapshot is not an array")
	}

	books := make([]Book, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Title == nil || e.Author == nil || e.ISBN == nil {
			return nil, fmt.Errorf("entry %d: missing required field", i)
		}
		if strings.TrimSpace(*e.ISBN) == "" {
			return nil, fmt.Errorf("entry %d: empty isbn", i)
		}
		if seen[*e.ISBN] {
			return nil, fmt.Errorf("entry %d: duplicate isbn %s", i, *e.ISBN)
		}
		seen[*e.ISBN] = true
		books = append(books, Book{Title: *e.Title, Author: *e.Author, ISBN: *e.ISBN})
	}
	return books, nil
}
