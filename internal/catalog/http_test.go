package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const darkMagicianJSON = `{"data":[{"id":46986414,"name":"Dark Magician","type":"Normal Monster",
"card_sets":[
 {"set_name":"Legend of Blue Eyes White Dragon","set_code":"LOB-005","set_rarity":"Ultra Rare","set_rarity_code":"(UR)","set_price":"78.21"},
 {"set_name":"Starter Deck: Yugi","set_code":"SDY-006","set_rarity":"Ultra Rare","set_rarity_code":"(UR)","set_price":12},
 {"set_name":"","set_code":"BROKEN-1"},
 {"set_name":"Dark Magician Deck","set_code":"DMD-1","set_price":"n/a"}
]},
{"id":1,"name":""}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultHTTPConfig()
	cfg.BaseURL = srv.URL
	return NewHTTPClient(cfg, srv.Client()), srv
}

func TestHTTPClient_Search(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "yes", r.URL.Query().Get("misc"))
		assert.Equal(t, "dark magician", r.URL.Query().Get("fname"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(darkMagicianJSON))
	})

	cards, err := c.Search(context.Background(), "dark magician")
	require.NoError(t, err)
	require.Len(t, cards, 1, "nameless cards are dropped")
	assert.Contains(t, gotQuery, "fname=dark+magician")

	dm := cards[0]
	assert.Equal(t, int64(46986414), dm.ID)
	assert.Equal(t, "Dark Magician", dm.Name)
	require.Len(t, dm.Printings, 3, "printings without set name are dropped")
	require.NotNil(t, dm.Printings[0].Price)
	assert.InDelta(t, 78.21, *dm.Printings[0].Price, 1e-9)
	require.NotNil(t, dm.Printings[1].Price, "numeric prices are accepted")
	assert.InDelta(t, 12.0, *dm.Printings[1].Price, 1e-9)
	assert.Nil(t, dm.Printings[2].Price)
	assert.Empty(t, dm.Printings[2].Rarity)
}

func TestHTTPClient_LookupUsesExactName(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Dark Magician", r.URL.Query().Get("name"))
		assert.Empty(t, r.URL.Query().Get("fname"))
		_, _ = w.Write([]byte(darkMagicianJSON))
	})

	cards, err := c.Lookup(context.Background(), "Dark Magician")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestHTTPClient_ClientErrorIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No card matching your query was found in the database."}`))
	})

	for range 5 {
		cards, err := c.Search(context.Background(), "xyz")
		require.NoError(t, err)
		assert.Empty(t, cards)
	}
	assert.Equal(t, Closed, c.Breaker().State())
}

func TestHTTPClient_ServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for range 3 {
		_, err := c.Search(context.Background(), "dark magician")
		require.Error(t, err)
	}
	assert.Equal(t, Open, c.Breaker().State())

	_, err := c.Search(context.Background(), "dark magician")
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(3), hits.Load(), "open breaker does not reach the server")
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.cfg.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := c.Search(context.Background(), "dark magician")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := c.Search(context.Background(), "dark magician")
	assert.Error(t, err)
}

func TestHTTPClient_EmptyQuery(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("empty query must not reach the server")
	})
	cards, err := c.Search(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, cards)
}
