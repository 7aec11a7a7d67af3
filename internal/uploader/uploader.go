// Package uploader sequences one video upload attempt: probe duration,
// hash content, request a presigned target and write the bytes straight to
// object storage.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-video/client/internal/api"
	"github.com/aura-video/client/internal/identity"
	"github.com/aura-video/client/internal/media"
	"github.com/aura-video/client/internal/models"
)

const defaultContentType = "video/mp4"

// Metadata header names attached to the stored object so the backend's
// async processor can read them without a database round trip.
const (
	headerVideoID   = "x-amz-meta-video_id"
	headerVideoHash = "x-amz-meta-video_hash"
	headerUserID    = "x-amz-meta-cognito_user_id"
)

// candidate holds the per-attempt upload state. It is built when Upload is
// called and discarded when the attempt ends, never persisted.
type candidate struct {
	path            string
	fileName        string
	byteSize        int64
	contentType     string
	durationSeconds int
	contentDigest   string
}

// Uploader orchestrates upload attempts against one backend. Concurrent
// Upload calls for different files are safe; each attempt owns its own
// candidate state.
type Uploader struct {
	api      *api.Client
	transfer *http.Client
	logger   *zap.Logger
}

// New creates an uploader. The transfer client carries no overall timeout
// (bodies can be large) and relies on context cancellation instead.
func New(apiClient *api.Client, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		api:      apiClient,
		transfer: &http.Client{},
		logger:   logger,
	}
}

// Upload runs one upload attempt for the file at path and returns the
// server-assigned video id. Each step is gated on the previous one
// succeeding; any failure aborts the attempt with a single typed error.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	attemptID := uuid.New().String()
	log := u.logger.With(zap.String("attempt_id", attemptID), zap.String("file", path))

	cand, err := u.prepare(path)
	if err != nil {
		return "", err
	}
	log.Info("candidate prepared",
		zap.Int64("size_bytes", cand.byteSize),
		zap.Int("duration_seconds", cand.durationSeconds),
		zap.String("digest", cand.contentDigest),
	)

	// Caller identity is upload metadata only; authorization happens
	// server-side against the same token.
	subject, err := identity.Subject(u.api.Token())
	if err != nil {
		return "", fmt.Errorf("derive caller identity: %w", err)
	}

	presign, err := u.api.PresignUpload(ctx, models.PresignRequest{
		Filename:        cand.fileName,
		SizeBytes:       cand.byteSize,
		DurationSeconds: cand.durationSeconds,
		ContentType:     cand.contentType,
		VideoHash:       cand.contentDigest,
	})
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			return "", &PresignError{StatusCode: se.StatusCode, Message: se.Message}
		}
		return "", fmt.Errorf("presign: %w", err)
	}
	log.Info("presign granted", zap.String("video_id", presign.VideoID))

	if err := u.put(ctx, presign, cand, subject); err != nil {
		return "", err
	}
	log.Info("upload complete", zap.String("video_id", presign.VideoID))
	return presign.VideoID, nil
}

// prepare probes and hashes the file, building the attempt's candidate.
func (u *Uploader) prepare(path string) (*candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &media.ProbeError{Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &media.ProbeError{Err: err}
	}

	duration, err := media.ProbeDuration(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, &media.DigestError{Err: err}
	}
	digest, err := media.Digest(f)
	if err != nil {
		return nil, err
	}

	return &candidate{
		path:            path,
		fileName:        filepath.Base(path),
		byteSize:        info.Size(),
		contentType:     contentTypeFor(path),
		durationSeconds: duration,
		contentDigest:   digest,
	}, nil
}

// put streams the file to the presigned URL with the object metadata the
// processing pipeline reads.
func (u *Uploader) put(ctx context.Context, presign *models.PresignResponse, cand *candidate, subject string) error {
	f, err := os.Open(cand.path)
	if err != nil {
		return &TransferError{Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presign.UploadURL, f)
	if err != nil {
		return &TransferError{Err: err}
	}
	req.ContentLength = cand.byteSize
	req.Header.Set("Content-Type", cand.contentType)
	req.Header.Set(headerVideoID, presign.VideoID)
	req.Header.Set(headerVideoHash, cand.contentDigest)
	req.Header.Set(headerUserID, subject)

	resp, err := u.transfer.Do(req)
	if err != nil {
		return &TransferError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransferError{StatusCode: resp.StatusCode}
	}
	return nil
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}
