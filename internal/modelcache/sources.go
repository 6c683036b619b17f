package modelcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/knights-analytics/hugot"
)

type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source downloads every object under Prefix, keeping paths relative to it.
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
}

func (s *S3Source) Fetch(ctx context.Context, dir string) error {
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix),
	})

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list s3://%s/%s: %w", s.Bucket, s.Prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(strings.TrimPrefix(key, s.Prefix), "/")
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}

			dest, err := safeJoin(dir, rel)
			if err != nil {
				return err
			}
			if err := s.download(ctx, key, dest); err != nil {
				return err
			}
			count++
		}
	}

	slog.Info("[ModelCache] Downloaded model artifacts from S3",
		slog.String("bucket", s.Bucket),
		slog.String("prefix", s.Prefix),
		slog.Int("files", count))
	return nil
}

func (s *S3Source) download(ctx context.Context, key, dest string) error {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// HubSource downloads a model repository from the HuggingFace hub.
type HubSource struct {
	Repo string
}

func (h *HubSource) Fetch(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(dir, ".hub-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	modelPath, err := hugot.DownloadModel(h.Repo, staging, hugot.NewDownloadOptions())
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", h.Repo, err)
	}

	entries, err := os.ReadDir(modelPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.Rename(filepath.Join(modelPath, entry.Name()), filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to move %s into %s: %w", entry.Name(), dir, err)
		}
	}

	slog.Info("[ModelCache] Downloaded model from hub", slog.String("repo", h.Repo))
	return nil
}

func safeJoin(dir, rel string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(rel))
	if r, err := filepath.Rel(dir, dest); err != nil || strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("refusing to write %q outside %s", rel, dir)
	}
	return dest, nil
}
