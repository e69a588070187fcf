package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/extract"
	"github.com/filegpt/filegpt/internal/filestore"
	"github.com/filegpt/filegpt/internal/model"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/vecindex"
)

// Pinecone index names are capped at 45 characters; keep the slug part short
// so the uniqueness token always fits.
const maxSlugLen = 28

var driveFileIDPattern = regexp.MustCompile(`[-\w]{25,}`)

type FileService struct {
	files       FileRepository
	store       filestore.Store
	index       vecindex.Manager
	client      *http.Client
	driveAPIKey string
}

func NewFileService(files FileRepository, store filestore.Store, index vecindex.Manager, client *http.Client, driveAPIKey string) *FileService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &FileService{
		files:       files,
		store:       store,
		index:       index,
		client:      client,
		driveAPIKey: driveAPIKey,
	}
}

type UploadInput struct {
	FileName    string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type UploadOutput struct {
	File      *model.File `json:"file"`
	FileURL   string      `json:"file_url"`
	IndexName string      `json:"index_name"`
}

// Upload validates that the file is extractable, stores the blob, creates
// the vector index, and records the unprocessed metadata row. The short name
// doubles as the index name and never changes afterwards.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("file_name", in.FileName))

	contentType := extract.Normalize(in.ContentType)
	if _, ok := supportedType(contentType); !ok {
		contentType = extract.TypeForName(in.FileName)
	}
	if contentType == "" {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, in.FileName)
	}

	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// Extract eagerly so unsupported or empty files are rejected before any
	// remote state is created.
	text, err := extract.Text(ctx, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}

	shortName := shortFileName(in.FileName)
	key := shortName + strings.ToLower(path.Ext(in.FileName))

	if err := s.store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	fileURL := s.store.URL(key)
	logger.Info("file uploaded", zap.String("key", key), zap.String("file_url", fileURL))

	if err := s.index.EnsureIndex(ctx, shortName); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	f := &model.File{
		ID:            uuid.NewString(),
		FileName:      shortName,
		FileURL:       fileURL,
		VectorIndex:   shortName,
		IsProcessed:   false,
		ProcessedData: text,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.files.Create(ctx, f); err != nil {
		return nil, err
	}
	logger.Info("file record created", zap.String("file_id", f.ID), zap.String("index", shortName))
	return &UploadOutput{File: f, FileURL: fileURL, IndexName: shortName}, nil
}

// UploadFromDriveLink downloads a shared Google Drive file and runs the
// regular upload path on it.
func (s *FileService) UploadFromDriveLink(ctx context.Context, link string) (*UploadOutput, error) {
	fileID := driveFileIDPattern.FindString(link)
	if fileID == "" {
		return nil, fmt.Errorf("%w: invalid google drive link", apperr.ErrInvalid)
	}

	name, mimeType, err := s.driveMetadata(ctx, fileID)
	if err != nil {
		return nil, err
	}

	downloadURL := fmt.Sprintf("https://www.googleapis.com/drive/v3/files/%s?alt=media&key=%s", fileID, url.QueryEscape(s.driveAPIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download drive file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download drive file: %s", resp.Status)
	}

	return s.Upload(ctx, UploadInput{
		FileName:    name,
		ContentType: mimeType,
		Reader:      resp.Body,
	})
}

func (s *FileService) driveMetadata(ctx context.Context, fileID string) (name, mimeType string, err error) {
	metaURL := fmt.Sprintf("https://www.googleapis.com/drive/v3/files/%s?key=%s&fields=name,mimeType", fileID, url.QueryEscape(s.driveAPIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch drive metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch drive metadata: %s", resp.Status)
	}
	var meta struct {
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", "", fmt.Errorf("decode drive metadata: %w", err)
	}
	if meta.MimeType == "" {
		return "", "", fmt.Errorf("unable to fetch file metadata from google drive")
	}
	return meta.Name, meta.MimeType, nil
}

func (s *FileService) List(ctx context.Context) ([]*model.File, error) {
	return s.files.List(ctx)
}

// Rename updates the display name only; the vector index keeps its
// creation-time name.
func (s *FileService) Rename(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: new name is required", apperr.ErrInvalid)
	}
	return s.files.UpdateName(ctx, id, newName, time.Now().UnixMilli())
}

// Delete cascades: vector index first, then the storage blob, then the
// record. Completed steps are not rolled back when a later one fails.
func (s *FileService) Delete(ctx context.Context, id string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("file_id", id))
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteIndex(ctx, f.VectorIndex); err != nil {
		return err
	}
	logger.Info("vector index deleted", zap.String("index", f.VectorIndex))

	key := storageKey(f.FileURL)
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	logger.Info("blob deleted", zap.String("key", key))

	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("file record deleted")
	return nil
}

func shortFileName(original string) string {
	base := strings.TrimSuffix(path.Base(original), path.Ext(original))
	slugged := slug.Make(base)
	if len(slugged) > maxSlugLen {
		slugged = strings.Trim(slugged[:maxSlugLen], "-")
	}
	if slugged == "" {
		slugged = "file"
	}
	return fmt.Sprintf("%s-%d", slugged, time.Now().UnixMilli())
}

func supportedType(contentType string) (string, bool) {
	switch contentType {
	case "application/pdf",
		"text/csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"text/markdown":
		return contentType, true
	}
	return "", false
}
