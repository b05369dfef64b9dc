package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ridership3d/internal/common/logger"
	"github.com/ridership3d/pkg/ridership/models"
)

// HTTPDownloader fetches a URL into a writer.
type HTTPDownloader struct {
	client *http.Client
	logger logger.Logger
}

func NewHTTPDownloader(logger logger.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// Download streams url into dst and returns the number of bytes written.
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	written, err := d.copyWithProgress(dst, resp.Body, resp.ContentLength)
	if err != nil {
		return written, fmt.Errorf("downloading file: %w", err)
	}
	return written, nil
}

func (d *HTTPDownloader) copyWithProgress(dst io.Writer, src io.Reader, totalSize int64) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	lastLog := time.Now()

	for {
		nr, err := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if werr != nil {
				return written, werr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
			written += int64(nw)

			if time.Since(lastLog) > 5*time.Second && totalSize > 0 {
				d.logger.Debug("Download progress",
					"progress_percent", fmt.Sprintf("%.1f", float64(written)/float64(totalSize)*100),
					"bytes_downloaded", written,
					"total_bytes", totalSize)
				lastLog = time.Now()
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// Remote downloads the curated dataset from a URL on every Open.
type Remote struct {
	url        string
	dir        string
	downloader *HTTPDownloader
	logger     logger.Logger
}

// NewRemote stages downloads in dir, or the system temp directory when empty.
func NewRemote(url, dir string, logger logger.Logger) *Remote {
	return &Remote{
		url:        url,
		dir:        dir,
		downloader: NewHTTPDownloader(logger),
		logger:     logger,
	}
}

func (r *Remote) Kind() models.SourceKind { return models.SourceFixed }
func (r *Remote) Name() string            { return r.url }

// Open downloads into a temp file that is removed when the stream is closed.
func (r *Remote) Open(ctx context.Context) (io.ReadSeekCloser, error) {
	tmp, err := os.CreateTemp(r.dir, "ridership_download_*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	r.logger.Info("Starting download", "url", r.url, "dest", tmp.Name())
	written, err := r.downloader.Download(ctx, r.url, tmp)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("fetching %s: %w", r.url, err)
	}

	r.logger.Info("Download completed", "url", r.url, "size_bytes", written)
	return &tempFile{File: tmp}, nil
}

type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	if rmErr := os.Remove(t.File.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
