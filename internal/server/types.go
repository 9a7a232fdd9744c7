package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// cardResolver is the part of resolver.Resolver the server uses.
type cardResolver interface {
	scanner.Resolver
	ResolveWithOverride(ctx context.Context, manual, scanned string) resolver.Result
	Printings(ctx context.Context, name string) (catalog.Summary, bool)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	detector    *detector.Detector
	extractor   *recognizer.Extractor
	resolver    cardResolver
	session     scanner.Config
	logger      *slog.Logger
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	version     string
	rateLimiter *RateLimiter

	liveMu sync.Mutex
	live   map[*liveSession]struct{}
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Version     string

	// Per-client upload limits; zero disables a limit and all zero disables
	// rate limiting.
	RequestsPerMinute int
	RequestsPerDay    int
	MaxDataPerDay     int64
}

// Deps are the scanning collaborators shared by every request and
// websocket session.
type Deps struct {
	Detector  *detector.Detector
	Extractor *recognizer.Extractor
	Resolver  cardResolver
	// Session configures the live sessions opened over /ws/scan.
	Session scanner.Config
	Logger  *slog.Logger
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ResolveResponse wraps a resolver result.
type ResolveResponse struct {
	Success bool            `json:"success"`
	Result  resolver.Result `json:"result"`
}

// PrintingsResponse wraps the printings of one card.
type PrintingsResponse struct {
	Success bool            `json:"success"`
	Summary catalog.Summary `json:"summary"`
}

// ScanResult is the outcome of a one-shot image scan.
type ScanResult struct {
	Region     detector.Region `json:"region"`
	Text       string          `json:"text"`
	Variant    string          `json:"variant,omitempty"`
	Confidence float64         `json:"confidence"`
	Accuracy   int             `json:"accuracy"`
	Resolution resolver.Result `json:"resolution"`
	Processing struct {
		ExtractionMs int64 `json:"extraction_ms"`
		TotalMs      int64 `json:"total_ms"`
	} `json:"processing"`
}

// ScanResponse wraps a ScanResult.
type ScanResponse struct {
	Success bool       `json:"success"`
	Result  ScanResult `json:"result"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a new scanning server instance.
func NewServer(config Config, deps Deps) (*Server, error) {
	if deps.Extractor == nil {
		return nil, errors.New("server: extractor is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("server: resolver is required")
	}
	if deps.Detector == nil {
		deps.Detector = detector.New(detector.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 10
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}

	s := &Server{
		detector:    deps.Detector,
		extractor:   deps.Extractor,
		resolver:    deps.Resolver,
		session:     deps.Session,
		logger:      deps.Logger,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		version:     config.Version,
	}
	if config.RequestsPerMinute > 0 || config.RequestsPerDay > 0 || config.MaxDataPerDay > 0 {
		s.rateLimiter = NewRateLimiter(config.RequestsPerMinute, config.RequestsPerDay, config.MaxDataPerDay)
	}
	return s, nil
}

// Close ends every live scan session.
func (s *Server) Close() error {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	for ls := range s.live {
		ls.cancel()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/resolve", s.corsMiddleware(s.resolveHandler))
	mux.HandleFunc("/printings", s.corsMiddleware(s.printingsHandler))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.scanWebSocketHandler))
}
