package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ekamanam/studysync/internal/common"
)

const folderMimeType = "application/x-directory"

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	// AccountPath scopes every handle to one user account inside the bucket.
	AccountPath string
	Credentials *TokenCredentials
	Timeout     time.Duration
	Retry       RetryPolicy
}

// S3Store implements Store over an S3-compatible bucket. Folders are
// zero-byte marker objects whose key ends in "/", files are plain objects,
// and handles are object keys.
type S3Store struct {
	client  s3API
	bucket  string
	root    string
	creds   *TokenCredentials
	timeout time.Duration
	retry   RetryPolicy
}

// NewS3Store builds an S3 client from opts. SDK-level retries are disabled:
// the store's RetryPolicy decides what is retried.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", common.ErrInvalidArgument)
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("%w: credentials are required", common.ErrInvalidArgument)
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(opts.Credentials),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
		o.RetryMaxAttempts = 1
	})

	return newS3Store(client, opts), nil
}

func newS3Store(client s3API, opts S3Options) *S3Store {
	root := strings.Trim(opts.AccountPath, "/")
	if root != "" {
		root += "/"
	}
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		root:    root,
		creds:   opts.Credentials,
		timeout: opts.Timeout,
		retry:   opts.Retry,
	}
}

func (s *S3Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// precheck fails fast on missing or expired credentials.
func (s *S3Store) precheck(ctx context.Context, op, key string) error {
	if s.creds == nil {
		return nil
	}
	if _, err := s.creds.Retrieve(ctx); err != nil {
		return opError(op, key, err)
	}
	return nil
}

func (s *S3Store) parentPrefix(parent Handle) string {
	if parent == "" {
		return s.root
	}
	return strings.TrimSuffix(parent, "/") + "/"
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: invalid object name %q", common.ErrInvalidArgument, name)
	}
	return nil
}

func (s *S3Store) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, mimeType string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeType),
	})
	return err
}

func (s *S3Store) CreateFolder(ctx context.Context, name string, parent Handle) (Handle, error) {
	const op = OpCreateFolder
	if err := validName(name); err != nil {
		return "", opError(op, name, err)
	}
	key := s.parentPrefix(parent) + name + "/"
	if err := s.precheck(ctx, op, key); err != nil {
		return "", err
	}
	if err := s.put(ctx, key, nil, folderMimeType); err != nil {
		return "", opError(op, key, err)
	}
	return key, nil
}

func (s *S3Store) FindFolder(ctx context.Context, name string, parent Handle) (Handle, bool, error) {
	const op = OpFindFolder
	if err := validName(name); err != nil {
		return "", false, opError(op, name, err)
	}
	key := s.parentPrefix(parent) + name + "/"
	if err := s.precheck(ctx, op, key); err != nil {
		return "", false, err
	}

	var found bool
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := s.head(ctx, key)
		if err != nil {
			err = opError(op, key, err)
			if isNotFound(err) {
				found = false
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return key, true, nil
}

func (s *S3Store) UploadFile(ctx context.Context, data []byte, parent Handle, name, mimeType string) (UploadResult, error) {
	const op = OpUploadFile
	if err := validName(name); err != nil {
		return UploadResult{}, opError(op, name, err)
	}
	key := s.parentPrefix(parent) + name
	if err := s.precheck(ctx, op, key); err != nil {
		return UploadResult{}, err
	}

	if err := s.put(ctx, key, data, mimeType); err != nil {
		return UploadResult{}, opError(op, key, err)
	}

	// The object only counts as uploaded once its stored size matches.
	out, err := s.head(ctx, key)
	if err != nil {
		return UploadResult{}, opError(op, key, err)
	}
	size := aws.ToInt64(out.ContentLength)
	if size != int64(len(data)) {
		ctx, cancel := s.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
		return UploadResult{}, &OpError{Op: op, Key: key, Kind: common.ErrIncompleteUpload,
			Err: fmt.Errorf("stored %d of %d bytes", size, len(data))}
	}

	return UploadResult{Handle: key, Size: size}, nil
}

func (s *S3Store) ReplaceFile(ctx context.Context, h Handle, data []byte) error {
	const op = OpReplaceFile
	if err := s.precheck(ctx, op, h); err != nil {
		return err
	}
	out, err := s.head(ctx, h)
	if err != nil {
		return opError(op, h, err)
	}
	if err := s.put(ctx, h, data, aws.ToString(out.ContentType)); err != nil {
		return opError(op, h, err)
	}
	return nil
}

func (s *S3Store) DownloadFile(ctx context.Context, h Handle) ([]byte, error) {
	const op = OpDownloadFile
	if err := s.precheck(ctx, op, h); err != nil {
		return nil, err
	}

	var data []byte
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(h)})
		if err != nil {
			return opError(op, h, err)
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		if err != nil {
			return opError(op, h, err)
		}
		return nil
	})
	return data, err
}

func (s *S3Store) ListFilesByNamePattern(ctx context.Context, pattern string, parent Handle) ([]Handle, error) {
	const op = OpListFiles
	prefix := s.parentPrefix(parent)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, opError(op, pattern, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err))
	}
	if err := s.precheck(ctx, op, prefix); err != nil {
		return nil, err
	}

	var handles []Handle
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		handles = handles[:0]
		p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		})
		for p.HasMorePages() {
			pctx, cancel := s.withTimeout(ctx)
			page, err := p.NextPage(pctx)
			cancel()
			if err != nil {
				return opError(op, prefix, err)
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				name := strings.TrimPrefix(key, prefix)
				if name == "" || strings.HasSuffix(key, "/") {
					continue
				}
				if ok, _ := path.Match(pattern, name); ok {
					handles = append(handles, key)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func (s *S3Store) DeleteFile(ctx context.Context, h Handle) error {
	const op = OpDeleteFile
	if err := s.precheck(ctx, op, h); err != nil {
		return err
	}
	if _, err := s.head(ctx, h); err != nil {
		return opError(op, h, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(h)}); err != nil {
		return opError(op, h, err)
	}
	return nil
}
