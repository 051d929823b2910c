// Package storage persists uploaded PDFs on local disk under randomized
// names and resolves stored paths defensively when serving them back.
package storage

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ErrNotPDF indicates the upload is not a PDF by extension or content.
var ErrNotPDF = errors.New("only PDF uploads are allowed")

const storageNameBytes = 16

// Store writes and resolves uploaded files inside a single upload directory.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// New builds a store rooted at dir, creating the directory if needed.
func New(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// SavePDF validates that the upload is a PDF and writes it under a
// collision-proof randomized name, returning the stored name.
func (s *Store) SavePDF(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", ErrNotPDF
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", ErrNotPDF
	}

	handle, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer handle.Close()

	content := bytes.NewBuffer(nil)
	if _, err := io.Copy(content, handle); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if !mimetype.Detect(content.Bytes()).Is("application/pdf") {
		return "", ErrNotPDF
	}

	name, err := randomName(ext)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), content.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	return name, nil
}

// Resolve locates a stored file, trying the path as given, as an absolute
// path, and finally its basename inside the upload directory. ok is false
// when no candidate exists on disk.
func (s *Store) Resolve(pdfPath string) (string, bool) {
	if pdfPath == "" {
		return "", false
	}

	var candidates []string
	if filepath.IsAbs(pdfPath) {
		candidates = append(candidates, pdfPath)
	}
	if abs, err := filepath.Abs(pdfPath); err == nil {
		candidates = append(candidates, abs)
	}
	if base := filepath.Base(pdfPath); base != "" && base != "." {
		candidates = append(candidates, filepath.Join(s.dir, base))
		if abs, err := filepath.Abs(filepath.Join(s.dir, base)); err == nil {
			candidates = append(candidates, abs)
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}

// Remove deletes a stored file. Best effort: a missing or undeletable file
// is logged, never surfaced.
func (s *Store) Remove(pdfPath string) {
	resolved, ok := s.Resolve(pdfPath)
	if !ok {
		return
	}
	if err := os.Remove(resolved); err != nil {
		s.logger.Warn().Err(err).Str("path", resolved).Msg("failed to remove stored file")
	}
}

func randomName(ext string) (string, error) {
	raw := make([]byte, storageNameBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate storage name: %w", err)
	}
	return hex.EncodeToString(raw) + strings.ToLower(ext), nil
}
