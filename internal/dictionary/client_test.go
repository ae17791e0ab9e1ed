package dictionary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/hablo/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/entries/es/ni%C3%B1o", "/entries/es/niño":
			_, _ = w.Write([]byte(`[{"word":"niño","phonetics":[{"text":"ˈni.ɲo"}],
				"meanings":[{"partOfSpeech":"noun","definitions":[{"definition":"Persona que está en la niñez.","synonyms":[],"antonyms":[]}],"synonyms":[],"antonyms":[]}],
				"sourceUrls":["https://es.wiktionary.org/wiki/niño"]}]`))
		case "/entries/es/zzz":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"No Definitions Found","message":"Sorry pal","resolution":"Try the web"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL+"/entries/es/", logger.Nop())

	entries, err := c.Lookup(context.Background(), " niño ")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "niño", entries[0].Word)
	require.Len(t, entries[0].Meanings, 1)
	assert.Equal(t, "noun", entries[0].Meanings[0].PartOfSpeech)
	assert.Equal(t, "Persona que está en la niñez.", entries[0].Meanings[0].Definitions[0].Definition)
}

func TestLookupNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL+"/entries/es", logger.Nop())

	_, err := c.Lookup(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "Try the web", lookupErr.Problem.Resolution)
}

func TestLookupUnavailable(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL+"/entries/es", logger.Nop())

	_, err := c.Lookup(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = c.Lookup(context.Background(), "niño")
	assert.ErrorIs(t, err, ErrUnavailable)
}
