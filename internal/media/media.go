// Package media stores flight images in an object store and hands back
// public URLs. Two stores exist: Cloudinary for deployments and a local
// directory for development.
package media

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FlightFolder is the object-store folder for flight images.
const FlightFolder = "flights"

// Store persists binary objects and returns their public URL.
type Store interface {
	Upload(ctx context.Context, data []byte, folder, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// File is one uploaded file held in memory.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// UploadAll uploads files concurrently and returns their URLs in input
// order. The first failure cancels the remaining uploads and is returned.
// Objects that finished before the failure are left in the store.
func UploadAll(ctx context.Context, store Store, files []File, folder string) ([]string, error) {
	urls := make([]string, len(files))
	if len(files) == 0 {
		return urls, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			url, err := store.Upload(gctx, f.Data, folder, f.ContentType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// DeleteAll removes every url, continuing past failures, and returns the
// number of objects that could not be deleted.
func DeleteAll(ctx context.Context, store Store, urls []string) (failed int, err error) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if derr := store.Delete(ctx, u); derr != nil {
			failed++
			err = derr
		}
	}
	return failed, err
}
