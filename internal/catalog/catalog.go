// Package catalog loads the static list of titles the launcher manages.
// The catalog is read once at startup and immutable afterwards.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"launcherd/internal/fault"
	"launcherd/internal/model"
)

// Catalog holds the loaded title records keyed by ID.
type Catalog struct {
	titles map[string]model.TitleRecord
}

// Load reads a catalog document: a JSON object with a "games" array of title
// records. Entries without an ID are skipped with a warning; a duplicate ID
// overwrites the earlier entry with a warning, matching last-wins semantics.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: catalog file %s", fault.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog file: %v", fault.ErrInternal, err)
	}

	var doc struct {
		Games []model.TitleRecord `json:"games"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse catalog JSON: %v", fault.ErrInvalidArgument, err)
	}
	if doc.Games == nil {
		return nil, fmt.Errorf("%w: catalog missing 'games' array", fault.ErrInvalidArgument)
	}

	c := &Catalog{titles: make(map[string]model.TitleRecord, len(doc.Games))}
	for _, rec := range doc.Games {
		if rec.ID == "" {
			logger.Warn("skipping catalog entry without an id", "name", rec.Name)
			continue
		}
		if _, dup := c.titles[rec.ID]; dup {
			logger.Warn("duplicate title id in catalog, overwriting", "title_id", rec.ID)
		}
		c.titles[rec.ID] = rec
	}

	logger.Info("catalog loaded", "path", path, "titles", len(c.titles))
	return c, nil
}

// Get returns the record for a title ID.
func (c *Catalog) Get(id string) (model.TitleRecord, bool) {
	rec, ok := c.titles[id]
	return rec, ok
}

// Titles returns all records sorted by ID for stable listings.
func (c *Catalog) Titles() []model.TitleRecord {
	out := make([]model.TitleRecord, 0, len(c.titles))
	for _, rec := range c.titles {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
