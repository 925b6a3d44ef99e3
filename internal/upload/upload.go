// Package upload publishes the final assembled video to durable storage.
// The session/credentials construction is grounded on the teacher pack's
// aws-sdk-go v1 usage (livepeer-catalyst-api's MediaConvert client builds an
// aws.NewConfig + session.NewSession from static credentials), adapted from
// a transcode-job client to a plain S3 PutObject uploader.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/kira7dn/videoassembly/internal/pipeline"
)

// Uploader publishes a rendered file and returns its retrievable URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, destName string) (string, error)
}

// Config selects and parameterizes the uploader implementation. When
// Bucket/Region/AccessKeyID/SecretAccessKey are all set, S3 is used;
// otherwise the local filesystem uploader is used.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, for S3-compatible stores
	PublicBaseURL   string // prefix for S3 object URLs, or local download base URL
	LocalOutputDir  string // used only by the local uploader
}

// New selects an Uploader implementation from cfg.
func New(cfg Config) (Uploader, error) {
	if cfg.Bucket != "" && cfg.Region != "" && cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return newS3Uploader(cfg)
	}
	return newLocalUploader(cfg), nil
}

// S3Uploader uploads via PutObject through the S3 manager's buffered
// uploader, which handles multipart upload for larger files automatically.
type S3Uploader struct {
	uploader      *s3manager.Uploader
	bucket        string
	publicBaseURL string
}

func newS3Uploader(cfg Config) (*S3Uploader, error) {
	awsConfig := aws.NewConfig().
		WithRegion(cfg.Region).
		WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return &S3Uploader{
		uploader:      s3manager.NewUploader(sess),
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Upload reads localPath and puts it at destName in the configured bucket,
// returning the resulting public URL.
func (u *S3Uploader) Upload(ctx context.Context, localPath, destName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", &pipeline.UploadError{Key: destName, Err: err}
	}
	defer f.Close()

	contentType := "video/mp4"
	result, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(destName),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", &pipeline.UploadError{Key: destName, Err: err}
	}

	if u.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", trimTrailingSlash(u.publicBaseURL), destName), nil
	}
	return result.Location, nil
}

// LocalUploader copies the rendered file into a local output directory,
// used in development or when object storage isn't configured.
type LocalUploader struct {
	outputDir     string
	publicBaseURL string
}

func newLocalUploader(cfg Config) *LocalUploader {
	dir := cfg.LocalOutputDir
	if dir == "" {
		dir = "data/output"
	}
	return &LocalUploader{outputDir: dir, publicBaseURL: cfg.PublicBaseURL}
}

// Upload copies localPath into the configured output directory under
// destName and returns a URL the caller can hand back to a client: the
// public base URL joined with destName when one is configured, or a
// local://-scheme URL wrapping the destination path otherwise.
func (u *LocalUploader) Upload(ctx context.Context, localPath, destName string) (string, error) {
	if err := os.MkdirAll(u.outputDir, 0o755); err != nil {
		return "", &pipeline.UploadError{Key: destName, Err: err}
	}

	dst := filepath.Join(u.outputDir, destName)
	if err := copyFile(localPath, dst); err != nil {
		return "", &pipeline.UploadError{Key: destName, Err: err}
	}

	if u.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", trimTrailingSlash(u.publicBaseURL), destName), nil
	}
	return fmt.Sprintf("local://%s", dst), nil
}

func trimTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
