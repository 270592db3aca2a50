// Package storage issues upload URLs for course media and deletes stored
// objects.
package storage

import (
	"context"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// PresignTTL is how long an upload URL stays valid.
const PresignTTL = 360 * time.Second

// MaxUploadSize caps the declared size of a single upload.
const MaxUploadSize = 5 << 30

var fileNamePattern = regexp.MustCompile(`^[^/\\]+$`)

// PutRequest describes an object a client is allowed to upload.
type PutRequest struct {
	Key         string
	ContentType string
	Size        int64
	Expires     time.Duration
}

// Provider is the interface for object storage backends.
type Provider interface {
	// PresignPut returns a URL the client can PUT the object to directly.
	PresignPut(ctx context.Context, req PutRequest) (string, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// UploadRequest is the client's description of a file it wants to upload.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	IsImage     bool   `json:"isImage"`
}

// Validate checks the upload request.
func (r *UploadRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FileName, validation.Required.Error("File Name is required"),
			validation.RuneLength(1, 255),
			validation.Match(fileNamePattern).Error("File Name must not contain path separators")),
		validation.Field(&r.ContentType, validation.Required.Error("Content Type is required")),
		validation.Field(&r.FileSize,
			validation.Required.Error("File size is required"),
			validation.Min(int64(1)).Error("File size is required"),
			validation.Max(int64(MaxUploadSize))),
	)
}

// PutRequest converts r into a presign request under a fresh unique key.
func (r UploadRequest) PutRequest() PutRequest {
	return PutRequest{
		Key:         NewKey(r.FileName),
		ContentType: r.ContentType,
		Size:        r.FileSize,
		Expires:     PresignTTL,
	}
}

// NewKey returns a collision-free object key that keeps the original file
// name as a suffix.
func NewKey(fileName string) string {
	return uuid.NewString() + "-" + fileName
}
