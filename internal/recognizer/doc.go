// Package recognizer is the boundary to the external text recognizer.
//
// A Recognizer turns a raster image into a line of text and a confidence.
// The default build links no engine: New returns a backend whose calls fail
// with ErrNoBackend, which the Extractor treats as "no text". Build with the
// tag `tesseract` to link the gosseract (libtesseract, CGO) backend.
//
// Example:
//
//	go build -tags=tesseract ./...
//
// The Extractor runs the preprocessing ladder against a Recognizer and keeps
// the best attempt.
package recognizer
