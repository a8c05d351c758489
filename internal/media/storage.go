package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blog-agent/pkg/logger"
)

// Store downloads generated images and saves them under the uploads
// directory with a filename derived from the topic title.
type Store struct {
	dir        string
	httpClient *http.Client
	log        *logger.Logger
}

// NewStore creates an image store rooted at dir. Blog images live under
// <dir>/blog.
func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{
		dir: dir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.WithComponent("media"),
	}
}

// BlogDir returns the directory blog images are stored in
func (s *Store) BlogDir() string {
	return filepath.Join(s.dir, "blog")
}

// ImagePath returns the on-disk path for a stored image filename
func (s *Store) ImagePath(filename string) string {
	return filepath.Join(s.BlogDir(), filename)
}

// Download fetches image bytes over HTTP
func (s *Store) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	s.log.Debug().Int("size_bytes", len(data)).Msg("Image downloaded")
	return data, nil
}

// SaveImage writes image data under the blog directory and returns the
// generated filename: the sanitized title plus a timestamp.
func (s *Store) SaveImage(title string, data []byte) (string, error) {
	dir := s.BlogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.png", SanitizeFilename(title), time.Now().Format("20060102150405"))
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	s.log.Info().Str("filename", filename).Msg("Image saved")
	return filename, nil
}

// SanitizeFilename reduces a title to a safe filename stem: ASCII letters,
// digits, dash, underscore and dot, with whitespace collapsed to dashes.
func SanitizeFilename(title string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && sb.Len() > 0 {
				sb.WriteRune('-')
				lastDash = true
			}
		}
	}
	name := strings.Trim(sb.String(), "-")
	if name == "" {
		name = "image"
	}
	return name
}
