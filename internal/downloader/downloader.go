package downloader

import (
	"context"
	"fmt"
	"io"
	"time"

	"valavatar/pkg/logger"
)

// Streamer opens a response body for reading
type Streamer interface {
	Stream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Store persists a stream under a path
type Store interface {
	Save(r io.Reader, path string) (int64, error)
}

// Result represents the result of one download
type Result struct {
	URL      string
	Path     string
	Size     int64
	Duration time.Duration
}

// Downloader fetches one image per call and hands the body to the store.
// It keeps no per-download state, so one Downloader serves every slot.
type Downloader struct {
	client Streamer
	store  Store
	logger logger.Logger
}

// New creates a Downloader
func New(client Streamer, store Store, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{client: client, store: store, logger: log}
}

// Download streams url into path. It returns once the file is durable, or
// with an error that leaves no file at path.
func (d *Downloader) Download(ctx context.Context, url, path string) (Result, error) {
	start := time.Now()
	result := Result{URL: url, Path: path}

	d.logger.DebugWithFields("Downloading image", map[string]interface{}{
		"url":  url,
		"path": path,
	})

	body, err := d.client.Stream(ctx, url)
	if err != nil {
		result.Duration = time.Since(start)
		d.logger.ErrorWithFields("Failed to download image", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": result.Duration,
		})
		return result, fmt.Errorf("download failed: %w", err)
	}
	defer body.Close()

	result.Size, err = d.store.Save(body, path)
	result.Duration = time.Since(start)
	if err != nil {
		d.logger.ErrorWithFields("Failed to save image", map[string]interface{}{
			"url":   url,
			"path":  path,
			"error": err.Error(),
			"size":  result.Size,
		})
		return result, fmt.Errorf("save failed: %w", err)
	}

	d.logger.InfoWithFields("Image saved", map[string]interface{}{
		"path":     path,
		"size":     result.Size,
		"duration": result.Duration,
	})
	return result, nil
}
