package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"Bpsb/core/audio"
	"Bpsb/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemo(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(DemoAlbums())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func ids(tracks []model.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func TestCatalogLookups(t *testing.T) {
	c := newDemo(t)

	assert.Len(t, c.Albums(), 2)

	a, ok := c.Album("alternate-skies")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, ids(a.Tracks))

	_, ok = c.Album("nope")
	assert.False(t, ok)

	tr, ok := c.Track("3")
	require.True(t, ok)
	assert.Equal(t, "Sunny City Day", tr.Title)
	assert.Equal(t, 190.0, tr.Duration)

	_, ok = c.Track("99")
	assert.False(t, ok)
}

func TestCatalogSearch(t *testing.T) {
	c := newDemo(t)

	assert.Equal(t, []string{"1", "3"}, ids(c.Search("rainy")), "title or album match")
	assert.Equal(t, []string{"2"}, ids(c.Search("  SUMMER ")))
	assert.Equal(t, []string{"1", "2", "3"}, ids(c.Search("benpstoker")))
	assert.Empty(t, c.Search("jazz"))
	assert.Nil(t, c.Search("   "))

	first := c.Search("rainy")
	first[0].Title = "mutated"
	assert.Equal(t, "Rainy Day Rainbow", c.Search("rainy")[0].Title, "cached results are copied")
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]model.Album{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)

	_, err = New([]model.Album{
		{ID: "a", Tracks: []model.Track{{ID: "1"}}},
		{ID: "b", Tracks: []model.Track{{ID: "1"}}},
	})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := `[{"id":"x","title":"X","artist":"Y","tracks":[{"id":"t1","title":"T1","duration":12,"src":"minio:t1.wav"}]}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	defer c.Close()
	tr, ok := c.Track("t1")
	require.True(t, ok)
	assert.Equal(t, "minio:t1.wav", tr.Src)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCatalogProber(t *testing.T) {
	c := newDemo(t)
	p := c.Prober()

	d, err := p.Probe(context.Background(), "/audio/track2.wav")
	require.NoError(t, err)
	assert.Equal(t, 200.0, d)

	_, err = p.Probe(context.Background(), "/audio/unknown.wav")
	assert.ErrorIs(t, err, audio.ErrUnknownDuration)
}
