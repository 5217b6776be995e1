// Package fetch downloads structure files over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"
)

// DefaultChunkSize is the number of bytes copied per write.
const DefaultChunkSize = 1024

// DefaultUserAgent identifies catrace to the download server.
const DefaultUserAgent = "catrace"

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Config configures a Retriever.
type Config struct {
	// Client is optional. A client with Timeout is built when nil.
	Client *http.Client
	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Retriever streams a remote file to disk.
type Retriever struct {
	client    *http.Client
	chunkSize int
	userAgent string
	logger    *slog.Logger
}

// New creates a Retriever.
func New(cfg Config) *Retriever {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{
		client:    client,
		chunkSize: chunkSize,
		userAgent: userAgent,
		logger:    logger,
	}
}

// ArtifactName returns the last path segment of rawURL, the name the
// downloaded file is stored under.
func ArtifactName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}

// Download issues a single GET for rawURL and writes the body to dest,
// creating or truncating it. It returns the number of bytes written. A
// failed transfer can leave a partial file behind.
func (r *Retriever) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	r.logger.Debug("requesting structure", slog.String("url", rawURL))
	start := time.Now()

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	f, err := os.Create(dest) //nolint:gosec // dest is derived from the configured work dir
	if err != nil {
		return 0, &FileError{Path: dest, Err: err}
	}

	n, copyErr := r.copyChunks(f, resp.Body, dest)
	closeErr := f.Close()
	if copyErr != nil {
		return n, copyErr
	}
	if closeErr != nil {
		return n, &FileError{Path: dest, Err: closeErr}
	}

	r.logger.Debug("download complete",
		slog.String("path", dest),
		slog.Int64("bytes", n),
		slog.Duration("duration", time.Since(start)),
	)
	return n, nil
}

// copyChunks reads body in chunkSize pieces and writes every non-empty one.
func (r *Retriever) copyChunks(w io.Writer, body io.Reader, dest string) (int64, error) {
	buf := make([]byte, r.chunkSize)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, &FileError{Path: dest, Err: werr}
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("failed to read response body: %w", err)
		}
	}
}

// FileError reports a local filesystem failure while storing a download.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to write download %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
