package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/observability"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not an image.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadStorageDisabled indicates no image host is configured.
	ErrUploadStorageDisabled = errors.New("image storage is not configured")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates shop item images and hands them to the image host.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, actor ActivityActor) (dto.UploadResponse, error)
}

type uploadService struct {
	storage  FileStorage
	activity ActivityRecorder
	logger   zerolog.Logger
	maxSize  int64
	tracer   trace.Tracer
}

// NewUploadService constructs an upload service. A nil storage rejects every
// upload with ErrUploadStorageDisabled.
func NewUploadService(storage FileStorage, maxSizeMB int, activity ActivityRecorder, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage:  storage,
		activity: activity,
		logger:   logger.With().Str("component", "upload_service").Logger(),
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		tracer:   otel.Tracer("github.com/noah-isme/gema-arena/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, actor ActivityActor) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	fail := func(reason string, err error) (dto.UploadResponse, error) {
		if reason != "" {
			observability.UploadRejected().WithLabelValues(reason).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.UploadResponse{}, err
	}

	if file == nil {
		return fail("", errors.New("file is required"))
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)
	if s.storage == nil {
		return fail("storage", ErrUploadStorageDisabled)
	}
	if file.Size > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		return fail("", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail("", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return fail("size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	fileType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !strings.HasPrefix(fileType, "image/") {
		return fail("type", ErrUploadTypeNotAllowed)
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := sanitizeFileName(file.Filename, detected.Extension())
	span.SetAttributes(
		attribute.String("upload.sanitized_name", name),
		attribute.Int64("upload.size_bytes", int64(buf.Len())),
	)

	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fail("storage", err)
	}
	span.SetStatus(codes.Ok, "stored")

	response := dto.UploadResponse{
		URL:       url,
		SizeBytes: int64(buf.Len()),
		MimeType:  fileType,
		Checksum:  hex.EncodeToString(checksum[:]),
		FileName:  name,
	}
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "shop_image.uploaded",
		EntityType: "upload",
		EntityID:   response.Checksum,
		Metadata:   map[string]interface{}{"url": url, "mimeType": fileType, "sizeBytes": response.SizeBytes},
	})
	return response, nil
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if i := strings.Index(lower, ";"); i >= 0 {
		lower = strings.TrimSpace(lower[:i])
	}
	return lower
}
