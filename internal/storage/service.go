package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backend-cartorando/internal/db"

	"github.com/google/uuid"
)

const KindGPX = "gpx"

var ErrInvalidPath = errors.New("invalid object path")

type Object struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Service keeps uploaded files under a root directory and records each one
// in storage_objects.
type Service struct {
	db      db.Querier
	root    string
	baseURL string
}

func NewService(db db.Querier, root, baseURL string) *Service {
	return &Service{db: db, root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// GPXPath is where the GPX file chosen for a hike is archived.
func GPXPath(ownerID, hikeID string) string {
	return fmt.Sprintf("uploads/gpx/%s/%s.gpx", ownerID, hikeID)
}

// DefaultGPXPath is used when a hike is saved without any file.
func DefaultGPXPath(ownerID, hikeID string) string {
	return fmt.Sprintf("uploads/gpx/%s/%s-default.gpx", ownerID, hikeID)
}

// Upload writes data at path, replacing any previous object there.
func (s *Service) Upload(ctx context.Context, ownerID, path, kind string, data []byte) (Object, error) {
	full, err := s.resolve(path)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}

	obj := Object{ID: uuid.NewString(), Path: path, URL: s.baseURL + "/" + path, Kind: kind}
	if err := s.SaveObject(ctx, obj.ID, ownerID, obj.URL, kind); err != nil {
		return Object{}, err
	}
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, id, userID, url, kind string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	return err
}

// Open returns the on-disk location of path.
func (s *Service) Open(path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}

func (s *Service) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "\\") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean("/" + path)
	if clean == "/" || strings.TrimPrefix(clean, "/") != path {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
