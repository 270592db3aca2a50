package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadSignature = errors.New("storage: invalid upload signature")
	ErrExpired      = errors.New("storage: upload url expired")
	ErrSizeMismatch = errors.New("storage: body size does not match signed size")
)

// FS implements Provider on the local file system. Upload URLs point back at
// this service (PUT {baseURL}/api/objects/{key}) and carry an HMAC signature
// over key, content type, size and expiry.
type FS struct {
	root    string // absolute path to the object directory
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewFS creates a new FS provider rooted at the given directory, creating it
// if needed.
func NewFS(root, baseURL string, secret []byte) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("storage: signing secret is empty")
	}
	return &FS{root: abs, baseURL: strings.TrimRight(baseURL, "/"), secret: secret, now: time.Now}, nil
}

// safePath resolves an object key against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: empty key")
	}
	cleaned := filepath.Clean(key)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", key)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: key escapes root: %s", key)
	}
	return abs, nil
}

func (f *FS) sign(key, contentType string, size, expires int64) string {
	mac := hmac.New(sha256.New, f.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d\n%d", key, contentType, size, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// PresignPut returns a signed upload URL for this service's object endpoint.
func (f *FS) PresignPut(_ context.Context, req PutRequest) (string, error) {
	if _, err := f.safePath(req.Key); err != nil {
		return "", err
	}
	ttl := req.Expires
	if ttl <= 0 {
		ttl = PresignTTL
	}
	exp := f.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("content_type", req.ContentType)
	q.Set("size", strconv.FormatInt(req.Size, 10))
	q.Set("expires", strconv.FormatInt(exp, 10))
	q.Set("signature", f.sign(req.Key, req.ContentType, req.Size, exp))
	return f.baseURL + "/api/objects/" + url.PathEscape(req.Key) + "?" + q.Encode(), nil
}

// Receive verifies a signed upload and atomically stores body under key:
// tmp file → fsync → rename.
func (f *FS) Receive(key string, q url.Values, body io.Reader) error {
	size, err := strconv.ParseInt(q.Get("size"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	exp, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := f.sign(key, q.Get("content_type"), size, exp)
	if !hmac.Equal([]byte(want), []byte(q.Get("signature"))) {
		return ErrBadSignature
	}
	if f.now().Unix() > exp {
		return ErrExpired
	}

	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".learnvex-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(body, size+1))
	if err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if n != size {
		return ErrSizeMismatch
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Read returns the stored bytes of an object.
func (f *FS) Read(key string) ([]byte, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (f *FS) Delete(_ context.Context, key string) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
