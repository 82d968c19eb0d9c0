package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logging"
)

// MaxImageSize bounds decoded recipe images
const MaxImageSize = 5 << 20

const imagePrefix = "recipes/"

var ErrInvalidImage = errors.New("upload a valid image: a base64 data URI of a png, jpeg, gif or webp file")

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DecodedImage is a recipe image ready to be stored
type DecodedImage struct {
	Data        []byte
	ContentType string
}

// Filename returns a fresh unique name with the right extension
func (d *DecodedImage) Filename() string {
	return uuid.NewString() + imageExtensions[d.ContentType]
}

// DecodeDataURI parses "data:image/png;base64,...." and sniffs the payload type
func DecodeDataURI(uri string) (*DecodedImage, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidImage
	}
	// DecodedLen rounds up to whole 3 byte groups
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+2 {
		return nil, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, ErrInvalidImage
		}
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return nil, ErrInvalidImage
	}

	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, ErrInvalidImage
	}
	return &DecodedImage{Data: data, ContentType: contentType}, nil
}

// LocalImageStore writes images below a media directory served by the API
type LocalImageStore struct {
	root    string
	baseURL string
}

func NewLocalImageStore(root, baseURL string) *LocalImageStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalImageStore{root: root, baseURL: baseURL}
}

func (s *LocalImageStore) Save(_ context.Context, name string, _ string, body io.Reader) (string, error) {
	dir := filepath.Join(s.root, imagePrefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return s.baseURL + imagePrefix + filepath.Base(name), nil
}

func (s *LocalImageStore) Delete(_ context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.baseURL+imagePrefix)
	if !ok || rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, imagePrefix, filepath.Base(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// S3ImageStore keeps recipe images in an S3 bucket
type S3ImageStore struct {
	s3 *config.S3Config
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3: s3Config}
}

func (s *S3ImageStore) Save(ctx context.Context, name string, contentType string, body io.Reader) (string, error) {
	key := imagePrefix + name
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	logging.Debug().Str("key", key).Msg("Uploaded recipe image")
	return s.s3.ObjectURL(key), nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.s3.ObjectURL(""))
	if !ok || key == "" {
		return nil
	}
	_, err := s.s3.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}
