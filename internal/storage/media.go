// Package storage persists uploaded media (post photos and videos, story
// media, recipe photos, profile images) on S3 or on local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/feedora/backend/internal/config"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/google/uuid"
)

// MediaType classifies an upload by its extension.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// Folder groups objects by what they belong to.
type Folder string

const (
	FolderPosts    Folder = "posts"
	FolderStories  Folder = "stories"
	FolderRecipes  Folder = "recipes"
	FolderProfiles Folder = "profiles"
	FolderBanners  Folder = "banners"
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	MediaType MediaType `json:"mediaType"`
	Size      int64     `json:"size"`
}

// Upload is one file to store.
type Upload struct {
	Folder   Folder
	UserID   string
	Filename string
	Body     io.Reader
	Size     int64
}

// MediaStore stores and removes uploaded files.
type MediaStore interface {
	Put(ctx context.Context, up Upload) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Classify validates a filename's extension and reports its media type.
func Classify(filename string) (MediaType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct, ok := contentTypes[ext]
	if !ok {
		return "", apperrors.Invalidf("unsupported file type %q", ext)
	}
	if strings.HasPrefix(ct, "video/") {
		return MediaVideo, nil
	}
	return MediaImage, nil
}

// RequireImage is Classify restricted to images.
func RequireImage(filename string) error {
	mt, err := Classify(filename)
	if err != nil {
		return err
	}
	if mt != MediaImage {
		return apperrors.Invalidf("an image file is required")
	}
	return nil
}

func contentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// objectKey lays objects out as {folder}/{year}/{month}/{userID}/{id}{ext}.
func objectKey(up Upload, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s",
		up.Folder, now.Year(), now.Month(), up.UserID, uuid.NewString(),
		strings.ToLower(filepath.Ext(up.Filename)))
}

func publicURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

// New returns the media store selected by cfg.MediaBackend.
func New(ctx context.Context, cfg *config.Config) (MediaStore, error) {
	switch cfg.MediaBackend {
	case "s3":
		base := cfg.CDNURL
		if base == "" {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AWSBucket, cfg.AWSRegion)
		}
		return NewS3Store(ctx, cfg.AWSRegion, cfg.AWSBucket, base)
	case "local", "":
		return NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	default:
		return nil, fmt.Errorf("unknown MEDIA_BACKEND %q", cfg.MediaBackend)
	}
}
