package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"study-rag/internal/helper"
	"study-rag/internal/models"
)

var emptyList = json.RawMessage("[]")

// Store keeps generated artifacts as flat JSON files in one directory.
// Writes replace the whole file; concurrent writers race and the last one wins.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Save writes v as indented JSON under name
func (s *Store) Save(name string, v any) error {
	if err := helper.WriteJSON(s.path(name), v); err != nil {
		return err
	}
	log.Debug().Str("file", name).Msg("Saved artifact")
	return nil
}

// LoadRaw returns the stored JSON for name. Missing, empty and invalid files
// read as an empty list; other I/O failures are returned.
func (s *Store) LoadRaw(name string) (json.RawMessage, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return emptyList, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return emptyList, nil
	}
	if !json.Valid(data) {
		log.Warn().Str("file", name).Msg("Artifact is not valid JSON, serving empty list")
		return emptyList, nil
	}
	return json.RawMessage(data), nil
}

func (s *Store) SaveSummary(summary models.ReaderSummary) error {
	return s.Save(models.ReaderSummaryFile, summary)
}

// LoadSummary returns the summary of the last upload, if one was stored
func (s *Store) LoadSummary() (models.ReaderSummary, bool) {
	var summary models.ReaderSummary
	data, err := os.ReadFile(s.path(models.ReaderSummaryFile))
	if err != nil {
		return summary, false
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable reader summary")
		return summary, false
	}
	return summary, true
}

// SaveUpload stores an uploaded file under its base name and returns its path
func (s *Store) SaveUpload(filename string, r io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, `\`, "/")))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid upload filename %q", filename)
	}
	if err := helper.CreateFolder(s.Dir); err != nil {
		return "", err
	}

	dst := s.path(name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	log.Info().Str("file", dst).Int64("bytes", n).Msg("Stored upload")
	return dst, nil
}
