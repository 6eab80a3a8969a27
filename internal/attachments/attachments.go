// Package attachments stores uploaded request documents such as payment proofs.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

var (
	// ErrNotConfigured is returned when no storage credentials are set.
	ErrNotConfigured = errors.New("attachment storage not configured")
	// ErrUnsupportedFile is returned for extensions other than images and PDF.
	ErrUnsupportedFile = errors.New("only jpg, jpeg, png, webp and pdf files are accepted")
	// ErrTooLarge is returned for uploads over MaxSize.
	ErrTooLarge = errors.New("file too large")
)

var allowed = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".webp": "image",
	".pdf":  "auto",
}

// File is an upload received from a client.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Result identifies a stored file.
type Result struct {
	URL      string
	PublicID string
}

// Uploader stores files for a request.
type Uploader interface {
	Upload(ctx context.Context, requestID string, f File) (Result, error)
}

// Validate checks extension and size, returning the storage resource type.
func Validate(f File) (string, error) {
	kind, ok := allowed[strings.ToLower(filepath.Ext(f.Name))]
	if !ok {
		return "", ErrUnsupportedFile
	}
	if f.Size > MaxSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, f.Size, MaxSize)
	}
	return kind, nil
}

// Cloudinary uploads through the Cloudinary SDK.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds an uploader from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

// Upload stores f under the configured folder with a public id derived from the request.
func (c *Cloudinary) Upload(ctx context.Context, requestID string, f File) (Result, error) {
	kind, err := Validate(f)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := c.cld.Upload.Upload(ctx, f.Reader, uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     fmt.Sprintf("payment-%s-%d", requestID, time.Now().Unix()),
		ResourceType: kind,
		Overwrite:    boolPtr(false),
	})
	if err != nil {
		return Result{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Result{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return Result{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func boolPtr(b bool) *bool { return &b }
