package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// File is one raw upload from a create request: declared media type plus
// byte content. Empty files are skipped by the pipeline.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// CleanupQueue receives object names whose uploads succeeded before a later
// file in the same batch failed, so they can be deleted asynchronously.
type CleanupQueue interface {
	EnqueueImageCleanup(names []string) error
}

// ImagePipeline uploads attachment batches to the object store and hands
// back durable URLs in input order.
type ImagePipeline struct {
	store   ObjectStore
	folder  string
	baseURL string
	cleanup CleanupQueue
}

func NewImagePipeline(store ObjectStore, folder, baseURL string, cleanup CleanupQueue) *ImagePipeline {
	return &ImagePipeline{
		store:   store,
		folder:  folder,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cleanup: cleanup,
	}
}

// UploadAll stores every non-empty file in input order and returns one URL
// per stored file, order preserved. The first failed upload aborts the whole
// batch: no URLs are returned, and objects already stored for this batch are
// queued for deletion. There is no automatic retry.
func (p *ImagePipeline) UploadAll(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, 0, len(files))
	stored := make([]string, 0, len(files))

	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}

		name := p.objectName(f)
		if err := p.store.Put(ctx, name, f.Data, f.ContentType); err != nil {
			p.discard(stored)
			return nil, fmt.Errorf("image upload failed: %w", err)
		}

		stored = append(stored, name)
		urls = append(urls, p.URLFor(name))
	}

	return urls, nil
}

// URLFor maps a stored object name to the durable URL it is served under.
func (p *ImagePipeline) URLFor(name string) string {
	return p.baseURL + "/media/" + name
}

func (p *ImagePipeline) discard(names []string) {
	if p.cleanup == nil || len(names) == 0 {
		return
	}
	// Best effort: a cleanup enqueue failure must not mask the upload error.
	_ = p.cleanup.EnqueueImageCleanup(names)
}

// objectName derives a content-addressed name, so re-uploading identical
// bytes lands on the same object.
func (p *ImagePipeline) objectName(f File) string {
	sum := blake2b.Sum256(f.Data)
	return p.folder + "/" + hex.EncodeToString(sum[:]) + extensionFor(f.ContentType)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
