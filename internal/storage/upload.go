package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrNotConfigured means the remote store credentials are missing.
// A configuration error, surfaced as such rather than crashing.
var ErrNotConfigured = errors.New("remote storage is not configured")

const (
	defaultUploadBase = "https://api.cloudinary.com"
	uploadFolder      = "voicenotes"
)

// CloudinaryUploader implements Uploader against a Cloudinary-style
// "upload file, get back a durable URL" endpoint.
type CloudinaryUploader struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string

	// BaseURL overrides the API host, for tests.
	BaseURL string
	Client  *http.Client

	now func() time.Time
}

// NewCloudinaryUploader wires an uploader from credentials. Returns
// ErrNotConfigured when any required credential is absent.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, uploadPreset string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("%w: set cloud name, API key and API secret in the configuration", ErrNotConfigured)
	}
	return &CloudinaryUploader{
		CloudName:    cloudName,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		UploadPreset: uploadPreset,
		BaseURL:      defaultUploadBase,
		Client:       http.DefaultClient,
		now:          time.Now,
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the file as a signed multipart request and returns the
// secure URL the store assigned to it.
func (u *CloudinaryUploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open upload source: %w", err)
	}
	defer f.Close()

	timestamp := strconv.FormatInt(u.now().Unix(), 10)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"api_key":   u.APIKey,
		"timestamp": timestamp,
		"folder":    uploadFolder,
		"signature": u.signature(timestamp),
	}
	if u.UploadPreset != "" {
		fields["upload_preset"] = u.UploadPreset
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to build upload request: %w", err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read upload source: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/auto/upload", u.BaseURL, u.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("unreadable upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("remote store rejected upload: %s", msg)
	}
	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", errors.New("upload response carried no URL")
}

// signature signs the non-file parameters the way the upload API
// expects: sorted key=value pairs followed by the API secret, SHA-1.
func (u *CloudinaryUploader) signature(timestamp string) string {
	toSign := "folder=" + uploadFolder + "&timestamp=" + timestamp
	if u.UploadPreset != "" {
		toSign += "&upload_preset=" + u.UploadPreset
	}
	sum := sha1.Sum([]byte(toSign + u.APISecret))
	return hex.EncodeToString(sum[:])
}
