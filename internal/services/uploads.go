package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
)

const maxImagesPerUpload = 6

// ImageUploader stores an image and returns its public URL. *storage.Uploader satisfies it.
type ImageUploader interface {
	Put(ctx context.Context, in storage.Upload) (string, error)
}

// uploadImages stores files in order. Rejected content is reported with invalid; a missing
// uploader with ErrImageStoreNotConfigured.
func uploadImages(ctx context.Context, uploader ImageUploader, purpose storage.AssetPurpose, params storage.PathParams, files []ImageFile, newID func() string, invalid error) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxImagesPerUpload {
		return nil, fmt.Errorf("%w: at most %d images", invalid, maxImagesPerUpload)
	}
	if uploader == nil {
		return nil, ErrImageStoreNotConfigured
	}
	urls := make([]string, 0, len(files))
	for i, file := range files {
		p := params
		p.UploadID = newID()
		p.FileName = strings.TrimSpace(file.FileName)
		if p.FileName == "" {
			p.FileName = fmt.Sprintf("image-%d", i+1)
		}
		url, err := uploader.Put(ctx, storage.Upload{
			Purpose:     purpose,
			Params:      p,
			ContentType: file.ContentType,
			Body:        file.Body,
		})
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotConfigured):
				return nil, ErrImageStoreNotConfigured
			case errors.Is(err, storage.ErrContentTypeDenied), errors.Is(err, storage.ErrObjectTooLarge):
				return nil, fmt.Errorf("%w: image %d: %v", invalid, i+1, err)
			}
			return nil, fmt.Errorf("upload image %d: %w", i+1, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}
