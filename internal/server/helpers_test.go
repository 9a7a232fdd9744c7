package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalog.Static {
	price := 4.5
	return catalog.NewStatic(
		catalog.Candidate{
			ID:   46986414,
			Name: "Dark Magician",
			Printings: []catalog.Printing{
				{SetCode: "LOB-005", SetName: "Legend of Blue Eyes White Dragon", Rarity: "Ultra Rare", RarityCode: "(UR)", Price: &price},
				{SetCode: "SDY-006", SetName: "Starter Deck: Yugi", Rarity: "Ultra Rare", RarityCode: "(UR)"},
			},
		},
		catalog.Candidate{ID: 40640057, Name: "Kuriboh"},
	)
}

// fastSession ticks quickly enough for websocket tests to reach a commit.
func fastSession() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Interval = 20 * time.Millisecond
	cfg.Cooldown = 50 * time.Millisecond
	cfg.Stability.StableWindow = 60 * time.Millisecond
	return cfg
}

// newTestServer builds a server whose recognizer always reads text.
func newTestServer(t *testing.T, text string, cfg Config) (*Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	rec := recognizer.Func(func(context.Context, image.Image, recognizer.Options) (recognizer.Result, error) {
		calls.Add(1)
		return recognizer.Result{Text: text, Confidence: 91}, nil
	})
	if cfg.Version == "" {
		cfg.Version = "test"
	}
	s, err := NewServer(cfg, Deps{
		Extractor: recognizer.NewExtractor(rec, recognizer.DefaultExtractorConfig()),
		Resolver:  resolver.New(testCatalog(), resolver.DefaultConfig()),
		Session:   fastSession(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, calls
}

func newTestMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func cardPNG(t *testing.T, title string) []byte {
	t.Helper()
	return encodePNG(t, testutil.CardFrame(testutil.DefaultCardConfig(title)))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadRequest builds a multipart POST carrying data under field.
func uploadRequest(t *testing.T, target, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "card.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
