// Package asset implements the upload/thumbnail pipeline for binary values
// referenced from CRDT payloads (spec.md's LiveObject/LiveMap fields can
// hold arbitrary JSON, including an image element's url/thumbnailUrl).
// Grounded on the teacher's internal/service/asset_service.go, generalized
// off its workspace scoping and canvas-element orphan sweep (dropped —
// nothing in this system ties an asset to a single owning room; see
// DESIGN.md).
package asset

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nfnt/resize"

	"github.com/ryanwaits/openblocks-sub000/internal/database"
)

const (
	ThumbnailWidth  = 300
	ThumbnailHeight = 300
	MaxImageWidth   = 4000
	MaxImageHeight  = 4000
)

// AllowedImageTypes are the content types processImage will thumbnail;
// every other content type is stored as-is.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Service uploads files to MinIO and records them via Repository.
type Service struct {
	repo        *Repository
	minioClient *minio.Client
	bucket      string
	endpoint    string
	maxSize     int64
	allowed     map[string]bool
}

// NewService returns a Service storing into bucket via minioClient, with
// maxSize/allowedTypes enforced per internal/config's UploadConfig.
func NewService(repo *Repository, minioClient *minio.Client, endpoint, bucket string, maxSize int64, allowedTypes []string) (*Service, error) {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}
	if err := database.EnsureBucket(context.Background(), minioClient, bucket); err != nil {
		return nil, err
	}
	return &Service{
		repo:        repo,
		minioClient: minioClient,
		bucket:      bucket,
		endpoint:    endpoint,
		maxSize:     maxSize,
		allowed:     allowed,
	}, nil
}

// Upload validates, uploads, and records a new asset for userID.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, reader io.Reader) (*Asset, error) {
	if err := s.validate(size, contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ext := filepath.Ext(filename)
	objectName := fmt.Sprintf("%s/%s%s", time.Now().Format("2006/01"), uuid.New(), ext)

	isImage := AllowedImageTypes[contentType]
	width, height, thumbnailURL, err := s.processImage(ctx, data, contentType, isImage, ext)
	if err != nil {
		return nil, err
	}

	if err := s.putObject(ctx, objectName, data, size, contentType); err != nil {
		return nil, err
	}

	a := &Asset{
		ID:           uuid.New(),
		UploadedBy:   userID,
		Filename:     filename,
		ContentType:  contentType,
		Size:         size,
		URL:          s.objectURL(objectName),
		ThumbnailURL: thumbnailURL,
		Width:        width,
		Height:       height,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.cleanup(ctx, objectName, thumbnailURL)
		return nil, fmt.Errorf("failed to create asset record: %w", err)
	}
	return a, nil
}

func (s *Service) validate(size int64, contentType string) error {
	if s.maxSize > 0 && size > s.maxSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", s.maxSize)
	}
	if len(s.allowed) > 0 && !s.allowed[contentType] {
		return fmt.Errorf("unsupported file type: %s", contentType)
	}
	return nil
}

func (s *Service) processImage(ctx context.Context, data []byte, contentType string, isImage bool, ext string) (width, height *int, thumbnailURL *string, err error) {
	if !isImage {
		return nil, nil, nil, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > MaxImageWidth || h > MaxImageHeight {
		return nil, nil, nil, fmt.Errorf("image dimensions exceed maximum allowed size of %dx%d", MaxImageWidth, MaxImageHeight)
	}

	thumbURL, err := s.uploadThumbnail(ctx, img, format, ext, contentType)
	if err != nil {
		return nil, nil, nil, err
	}
	return &w, &h, thumbURL, nil
}

func (s *Service) uploadThumbnail(ctx context.Context, img image.Image, format, ext, contentType string) (*string, error) {
	thumb := resize.Thumbnail(ThumbnailWidth, ThumbnailHeight, img, resize.Lanczos3)
	name := fmt.Sprintf("%s/thumb_%s%s", time.Now().Format("2006/01"), uuid.New(), ext)

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, thumb)
	default:
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	_, err = s.minioClient.PutObject(ctx, s.bucket, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload thumbnail: %w", err)
	}

	url := s.objectURL(name)
	return &url, nil
}

func (s *Service) putObject(ctx context.Context, name string, data []byte, size int64, contentType string) error {
	_, err := s.minioClient.PutObject(ctx, s.bucket, name, bytes.NewReader(data), size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *Service) cleanup(ctx context.Context, objectName string, thumbnailURL *string) {
	_ = s.minioClient.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if thumbnailURL != nil {
		if name := s.extractObjectName(*thumbnailURL); name != "" {
			_ = s.minioClient.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
		}
	}
}

// Get retrieves an asset by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) objectURL(objectName string) string {
	return fmt.Sprintf("http://%s/%s/%s", s.endpoint, s.bucket, objectName)
}

func (s *Service) extractObjectName(url string) string {
	const parts = 2
	p := strings.SplitN(url, s.bucket+"/", parts)
	if len(p) == parts {
		return p[1]
	}
	return ""
}
