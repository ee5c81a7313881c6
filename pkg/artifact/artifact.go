// Package artifact mirrors a completed run's output directory to S3 when
// configured to do so. It is pure convenience layered on top of the local
// output_dir a run already writes to: mirroring failures never affect the
// run's recorded status or outputs, they only get logged.
//
// Grounded on the teacher's storage package (evalgo-org/eve's
// aws-sdk-go-v2 + feature/s3/manager upload path), trimmed to the single
// AWS S3 backend this module needs rather than its multi-cloud (LakeFS,
// MinIO, Hetzner) surface.
package artifact

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects and authenticates the destination bucket. Bucket is the
// single knob spec.md's "artifact.s3_bucket" text calls for; when it is
// empty, New returns a nil *Mirrorer (mirroring disabled); Mirror itself
// does not check for a nil receiver.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // non-empty for S3-compatible endpoints; AWS otherwise
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // object key prefix under which runs are stored, e.g. "runs/"
	MaxConcurrent   int    // concurrent uploads per Mirror call, default 16
}

// Mirrorer uploads a run's output directory to S3. It is safe for
// concurrent use across runs.
type Mirrorer struct {
	cfg      Config
	uploader *manager.Uploader
}

// New builds a Mirrorer from cfg. Returns (nil, nil) if cfg.Bucket is
// empty, signaling that artifact mirroring is disabled.
func New(ctx context.Context, cfg Config) (*Mirrorer, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, SigningRegion: region, HostnameImmutable: true}, nil
			})))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &Mirrorer{cfg: cfg, uploader: manager.NewUploader(client)}, nil
}

// Result reports what Mirror did with a single file.
type Result struct {
	LocalPath string
	Key       string
	Err       error
}

// Summary aggregates a Mirror call's per-file Results.
type Summary struct {
	TotalFiles   int
	SuccessCount int
	ErrorCount   int
	Results      []Result
	FirstError   error
}

// Mirror uploads every regular file under outputDir to
// "<prefix><runID>/<relative path>", overwriting any existing object.
// Individual file failures are collected in the returned Summary rather
// than aborting the whole run; Mirror's own error is only non-nil for a
// directory-walk or configuration failure affecting the entire call.
func (m *Mirrorer) Mirror(ctx context.Context, runID, outputDir string) (*Summary, error) {
	files, err := walkFiles(outputDir)
	if err != nil {
		return nil, fmt.Errorf("artifact: discover files under %s: %w", outputDir, err)
	}

	sem := make(chan struct{}, m.cfg.MaxConcurrent)
	results := make(chan Result, len(files))

	var wg sync.WaitGroup
	for _, path := range files {
		wg.Add(1)

		go func(localPath string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results <- m.uploadOne(ctx, runID, outputDir, localPath)
		}(path)
	}

	wg.Wait()
	close(results)

	summary := &Summary{TotalFiles: len(files), Results: make([]Result, 0, len(files))}
	for r := range results {
		summary.Results = append(summary.Results, r)
		if r.Err == nil {
			summary.SuccessCount++
			continue
		}

		summary.ErrorCount++
		if summary.FirstError == nil {
			summary.FirstError = r.Err
		}
	}

	return summary, nil
}

func (m *Mirrorer) uploadOne(ctx context.Context, runID, outputDir, localPath string) Result {
	relPath, err := filepath.Rel(outputDir, localPath)
	if err != nil {
		return Result{LocalPath: localPath, Err: fmt.Errorf("relative path: %w", err)}
	}

	key := m.objectKey(runID, relPath)
	res := Result{LocalPath: localPath, Key: key}

	file, err := os.Open(localPath)
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", localPath, err)
		return res
	}
	defer file.Close()

	md5hash, err := fileMD5(localPath)
	if err != nil {
		res.Err = fmt.Errorf("md5 %s: %w", localPath, err)
		return res
	}

	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(m.cfg.Bucket),
		Key:      aws.String(key),
		Body:     file,
		Metadata: map[string]string{"md5": md5hash},
	})
	if err != nil {
		res.Err = fmt.Errorf("upload %s: %w", localPath, err)
	}

	return res
}

func (m *Mirrorer) objectKey(runID, relPath string) string {
	key := strings.ReplaceAll(relPath, string(os.PathSeparator), "/")
	prefix := strings.TrimSuffix(m.cfg.Prefix, "/")

	if prefix == "" {
		return runID + "/" + key
	}

	return prefix + "/" + runID + "/" + key
}

func walkFiles(root string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
