// Package uploads transcodes listing images and stores them in object storage.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxFiles caps the number of images per upload batch.
	MaxFiles = 5
	// MaxFileBytes caps each uploaded file.
	MaxFileBytes = 10 << 20

	maxDimension = 1600
	jpegQuality  = 85
	contentType  = "image/jpeg"
)

var (
	// ErrTooManyFiles reports a batch exceeding MaxFiles.
	ErrTooManyFiles = errors.New("too many files")
	// ErrFileTooLarge reports a file exceeding MaxFileBytes.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotAnImage reports a file that could not be decoded as an image.
	ErrNotAnImage = errors.New("not a decodable image")
	// ErrNoFiles reports an empty batch.
	ErrNoFiles = errors.New("no files supplied")
)

// Config configures the object storage client.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UseSSL        bool
}

// Uploader resizes images and writes them to a MinIO bucket.
type Uploader struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, config Config) (*Uploader, error) {
	if strings.TrimSpace(config.Endpoint) == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if strings.TrimSpace(config.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage bucket create: %w", err)
		}
	}
	publicBaseURL := strings.TrimRight(config.PublicBaseURL, "/")
	if publicBaseURL == "" {
		scheme := "http"
		if config.UseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, config.Endpoint, config.Bucket)
	}
	return &Uploader{client: client, bucket: config.Bucket, publicBaseURL: publicBaseURL}, nil
}

// UploadBatch transcodes and stores every file, returning public URLs in input
// order. Files are processed concurrently; the first failure aborts the batch.
func (uploader *Uploader) UploadBatch(ctx context.Context, files [][]byte) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > MaxFiles {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyFiles, len(files), MaxFiles)
	}
	for index, file := range files {
		if len(file) > MaxFileBytes {
			return nil, fmt.Errorf("%w: file %d", ErrFileTooLarge, index+1)
		}
	}

	urls := make([]string, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	for index, file := range files {
		index, file := index, file
		group.Go(func() error {
			url, err := uploader.uploadOne(groupCtx, file)
			if err != nil {
				return err
			}
			urls[index] = url
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (uploader *Uploader) uploadOne(ctx context.Context, file []byte) (string, error) {
	decoded, err := imaging.Decode(bytes.NewReader(file), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	resized := imaging.Fit(decoded, maxDimension, maxDimension, imaging.Lanczos)

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	objectName := fmt.Sprintf("listings/%s.jpg", uuid.NewString())
	_, err = uploader.client.PutObject(ctx, uploader.bucket, objectName, &encoded, int64(encoded.Len()), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return fmt.Sprintf("%s/%s", uploader.publicBaseURL, objectName), nil
}
