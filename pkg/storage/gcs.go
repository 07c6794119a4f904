package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

const filenameKey = "filename"

// GCSStorage keeps documents in a Google Cloud Storage bucket under {userID}/{fileID}.
// Credentials come from Application Default Credentials.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage opens a client for bucket
func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func objectName(userID, fileID uuid.UUID) string {
	return userID.String() + "/" + fileID.String()
}

func (s *GCSStorage) object(userID, fileID uuid.UUID) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectName(userID, fileID))
}

func (s *GCSStorage) Save(ctx context.Context, userID, fileID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error) {
	w := s.object(userID, fileID).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{filenameKey: sanitizeFilename(filename)}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("copy to gcs writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}
	return infoFromAttrs(fileID, w.Attrs()), nil
}

func (s *GCSStorage) Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.object(userID, fileID).NewReader(ctx)
	if err != nil {
		return nil, nil, gcsError(err)
	}
	return rc, info, nil
}

func (s *GCSStorage) Delete(ctx context.Context, userID, fileID uuid.UUID) error {
	if err := s.object(userID, fileID).Delete(ctx); err != nil {
		return gcsError(err)
	}
	return nil
}

func (s *GCSStorage) GetInfo(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error) {
	attrs, err := s.object(userID, fileID).Attrs(ctx)
	if err != nil {
		return nil, gcsError(err)
	}
	return infoFromAttrs(fileID, attrs), nil
}

// Close releases the client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func infoFromAttrs(fileID uuid.UUID, attrs *gcs.ObjectAttrs) *FileInfo {
	if attrs == nil {
		return &FileInfo{ID: fileID}
	}
	name := attrs.Metadata[filenameKey]
	if name == "" {
		name = fileID.String()
	}
	return &FileInfo{
		ID:          fileID,
		Name:        name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Path:        attrs.Name,
		CreatedAt:   attrs.Created,
	}
}

func gcsError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return apperrors.NotFound("file")
	}
	return fmt.Errorf("gcs: %w", err)
}

var (
	_ Storage = (*GCSStorage)(nil)
	_ Storage = (*LocalStorage)(nil)
)
