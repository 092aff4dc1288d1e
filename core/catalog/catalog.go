package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"Bpsb/core/audio"
	"Bpsb/model"

	"github.com/goccy/go-json"
	"github.com/karlseguin/ccache/v3"
)

const searchTTL = 5 * time.Minute

// Catalog is the read-only album and track provider feeding the player.
type Catalog struct {
	albums  []model.Album
	byAlbum map[string]*model.Album
	tracks  map[string]model.Track
	bySrc   map[string]model.Track
	order   []string // track IDs in catalog order

	searches *ccache.Cache[[]model.Track]
}

// New builds a catalog from albums. Track IDs must be unique across albums.
func New(albums []model.Album) (*Catalog, error) {
	c := &Catalog{
		albums:   albums,
		byAlbum:  make(map[string]*model.Album, len(albums)),
		tracks:   make(map[string]model.Track),
		bySrc:    make(map[string]model.Track),
		searches: ccache.New(ccache.Configure[[]model.Track]().MaxSize(512)),
	}

	for i := range c.albums {
		a := &c.albums[i]
		if _, dup := c.byAlbum[a.ID]; dup {
			return nil, fmt.Errorf("duplicate album id %q", a.ID)
		}
		c.byAlbum[a.ID] = a
		for _, t := range a.Tracks {
			if _, dup := c.tracks[t.ID]; dup {
				return nil, fmt.Errorf("duplicate track id %q", t.ID)
			}
			c.tracks[t.ID] = t
			c.order = append(c.order, t.ID)
			if t.Src != "" {
				c.bySrc[t.Src] = t
			}
		}
	}
	return c, nil
}

// LoadFile reads a JSON array of albums from path.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var albums []model.Album
	if err := json.Unmarshal(raw, &albums); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(albums)
}

// Albums 返回全部专辑
func (c *Catalog) Albums() []model.Album {
	return append([]model.Album(nil), c.albums...)
}

// Album looks up an album by ID.
func (c *Catalog) Album(id string) (model.Album, bool) {
	a, ok := c.byAlbum[id]
	if !ok {
		return model.Album{}, false
	}
	return *a, true
}

// Track looks up a track by ID.
func (c *Catalog) Track(id string) (model.Track, bool) {
	t, ok := c.tracks[id]
	return t, ok
}

// Search returns tracks whose title, artist or album contains query,
// case-insensitively, in catalog order. An empty query matches nothing.
func (c *Catalog) Search(query string) []model.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	if item := c.searches.Get(q); item != nil && !item.Expired() {
		return append([]model.Track(nil), item.Value()...)
	}

	var out []model.Track
	for _, id := range c.order {
		t := c.tracks[id]
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) ||
			strings.Contains(strings.ToLower(t.Album), q) {
			out = append(out, t)
		}
	}
	c.searches.Set(q, out, searchTTL)
	return append([]model.Track(nil), out...)
}

// Prober answers duration probes with the declared duration of the catalog
// track whose source matches.
func (c *Catalog) Prober() audio.DurationProber {
	return audio.ProberFunc(func(_ context.Context, src string) (float64, error) {
		t, ok := c.bySrc[src]
		if !ok || t.Duration <= 0 {
			return 0, fmt.Errorf("%s: %w", src, audio.ErrUnknownDuration)
		}
		return t.Duration, nil
	})
}

// Close stops the search cache's background worker.
func (c *Catalog) Close() {
	c.searches.Stop()
}
