package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/similarity"
	"github.com/MeKo-Tech/cardscan/internal/utils"
)

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// resolveHandler resolves ?q= against the catalog. A non-empty ?manual=
// overrides the scanned text.
func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.resolver == nil {
		s.writeErrorResponse(w, "Resolver not initialized", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	query, manual := q.Get("q"), q.Get("manual")
	if strings.TrimSpace(query) == "" && strings.TrimSpace(manual) == "" {
		s.writeErrorResponse(w, "Missing query parameter q", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res := s.resolver.ResolveWithOverride(ctx, manual, query)
	s.writeJSON(w, http.StatusOK, ResolveResponse{Success: true, Result: res})
}

// printingsHandler lists the set printings of ?name=.
func (s *Server) printingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.resolver == nil {
		s.writeErrorResponse(w, "Resolver not initialized", http.StatusServiceUnavailable)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		s.writeErrorResponse(w, "Missing query parameter name", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	summary, ok := s.resolver.Printings(ctx, name)
	if !ok {
		s.writeErrorResponse(w, "No printings found for "+name, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, PrintingsResponse{Success: true, Summary: summary})
}

// scanImageHandler runs detection, extraction and resolution once over an
// uploaded card photo.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.extractor == nil || s.resolver == nil || s.detector == nil {
		s.writeErrorResponse(w, "Scanner not initialized", http.StatusServiceUnavailable)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	img, err := utils.DecodeImage(file)
	if err != nil {
		scanRequestsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res := s.scan(ctx, frame.New(img, start))
	res.Processing.TotalMs = time.Since(start).Milliseconds()
	scanDuration.Observe(time.Since(start).Seconds())

	switch {
	case res.Resolution.Accepted:
		scanRequestsTotal.WithLabelValues("accepted").Inc()
	case res.Text == "":
		scanRequestsTotal.WithLabelValues("no_text").Inc()
	default:
		scanRequestsTotal.WithLabelValues("rejected").Inc()
	}

	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res})
}

// scan is one detect/extract/resolve pass over f.
func (s *Server) scan(ctx context.Context, f *frame.Frame) ScanResult {
	var out ScanResult
	out.Region = s.detector.DetectFrame(f)

	extractStart := time.Now()
	attempt, ok := s.extractor.Extract(ctx, out.Region.Crop(f))
	out.Processing.ExtractionMs = time.Since(extractStart).Milliseconds()
	if !ok {
		out.Resolution = resolver.Rejected("", resolver.ReasonEmpty, nil, 0)
		return out
	}

	out.Text = attempt.Text
	out.Variant = attempt.Variant.String()
	out.Confidence = attempt.Confidence
	out.Resolution = s.resolver.Resolve(ctx, attempt.Text)
	if out.Resolution.Accepted {
		out.Accuracy = similarity.Accuracy(attempt.Text, out.Resolution.Name)
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
