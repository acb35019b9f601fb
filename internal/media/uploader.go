// Package media uploads user-supplied images to a Cloudinary-compatible
// endpoint and returns their public URL.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"ping-me/internal/apperr"
)

const dataURIPrefix = "data:image/"

// Options controls where an image lands and how it is resized.
type Options struct {
	Folder    string
	MaxWidth  int
	MaxHeight int
}

// Uploader stores an image given as a data URI and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, dataURI string, opts Options) (string, error)
}

// ValidateImageDataURI accepts only "data:image/..." payloads.
func ValidateImageDataURI(dataURI string) error {
	if !strings.HasPrefix(dataURI, dataURIPrefix) || !strings.Contains(dataURI, ",") {
		return apperr.ErrInvalidImage
	}
	return nil
}

// HTTPUploader performs unsigned uploads with an upload preset.
type HTTPUploader struct {
	endpoint string
	preset   string
	client   *http.Client
}

func NewHTTPUploader(endpoint, preset string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPUploader{endpoint: endpoint, preset: preset, client: client}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (u *HTTPUploader) Upload(ctx context.Context, dataURI string, opts Options) (string, error) {
	if err := ValidateImageDataURI(dataURI); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	fields := map[string]string{
		"file":          dataURI,
		"upload_preset": u.preset,
		"folder":        opts.Folder,
	}
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 {
		fields["transformation"] = fmt.Sprintf("c_limit,w_%d,h_%d,q_auto", opts.MaxWidth, opts.MaxHeight)
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(key, value); err != nil {
			return "", apperr.ErrMediaUpload.Wrap(err)
		}
	}
	if err := form.Close(); err != nil {
		return "", apperr.ErrMediaUpload.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", apperr.ErrMediaUpload.Wrap(err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", apperr.ErrMediaUpload.Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperr.ErrMediaUpload.Wrap(err)
	}
	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", apperr.ErrMediaUpload.Wrap(fmt.Errorf("decode upload response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode >= 300 || out.SecureURL == "" {
		reason := fmt.Sprintf("status %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			reason = out.Error.Message
		}
		return "", apperr.ErrMediaUpload.Wrap(fmt.Errorf("upload rejected: %s", reason))
	}
	return out.SecureURL, nil
}

// Disabled fails every upload. Used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Upload(_ context.Context, dataURI string, _ Options) (string, error) {
	if err := ValidateImageDataURI(dataURI); err != nil {
		return "", err
	}
	return "", apperr.ErrMediaUpload.WithMessage("image uploads are not configured")
}

// New picks the HTTP uploader when endpoint is set.
func New(endpoint, preset string) Uploader {
	if endpoint == "" {
		return Disabled{}
	}
	return NewHTTPUploader(endpoint, preset, nil)
}
