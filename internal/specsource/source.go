// Package specsource loads scene spec documents from a file path, standard
// input ("-") or an S3 object ("s3://bucket/key").
package specsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/spec"
)

// Stdin is the location naming standard input.
const Stdin = "-"

const s3Scheme = "s3://"

// maxDocumentBytes caps how much of any source is read.
const maxDocumentBytes = 8 << 20

var (
	ErrInvalidLocation = errors.New("invalid spec location")
	ErrTooLarge        = errors.New("spec document exceeds size limit")
)

// Format is the serialization of a spec document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// objectGetter is the part of *s3.Client the loader uses.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the client built for s3:// locations. Empty keys fall
// back to the standard AWS_* environment variables.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Loader resolves locations to spec documents.
type Loader struct {
	stdin   io.Reader
	s3      objectGetter
	s3cfg   S3Config
	extract bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithStdin replaces os.Stdin as the source for "-".
func WithStdin(r io.Reader) Option {
	return func(l *Loader) { l.stdin = r }
}

// WithS3Config sets how the S3 client is built on first use.
func WithS3Config(cfg S3Config) Option {
	return func(l *Loader) { l.s3cfg = cfg }
}

// WithS3Client injects a ready client.
func WithS3Client(c objectGetter) Option {
	return func(l *Loader) { l.s3 = c }
}

// WithExtract makes the loader recover the first JSON object from free
// text, such as a model reply with prose or code fences around it.
func WithExtract(on bool) Option {
	return func(l *Loader) { l.extract = on }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{stdin: os.Stdin}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FormatOf guesses the format from the location's extension.
func FormatOf(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and parses the document at location.
func (l *Loader) Load(ctx context.Context, location string) (*spec.Document, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	format := FormatOf(location)
	if l.extract {
		obj, err := spec.ExtractJSON(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to extract spec from %s: %w", location, err)
		}
		data, format = []byte(obj), FormatJSON
	}

	var doc *spec.Document
	if format == FormatYAML {
		doc, err = spec.ParseYAML(data)
	} else {
		doc, err = spec.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", location, err)
	}
	return doc, nil
}

// Read returns the raw bytes at location.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	logger := ctxlog.FromContext(ctx).With("location", location)
	switch {
	case location == "":
		return nil, fmt.Errorf("%w: empty", ErrInvalidLocation)
	case location == Stdin:
		logger.Debug("Reading spec from stdin.")
		return readLimited(l.stdin)
	case strings.HasPrefix(location, s3Scheme):
		logger.Debug("Reading spec from S3.")
		return l.readS3(ctx, location)
	default:
		logger.Debug("Reading spec from file.")
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open spec file: %w", err)
		}
		defer f.Close()
		return readLimited(f)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ParseS3 splits "s3://bucket/key" into its parts.
func ParseS3(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 location", ErrInvalidLocation, location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs both bucket and key", ErrInvalidLocation, location)
	}
	return bucket, key, nil
}

func (l *Loader) readS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return nil, err
	}
	if l.s3 == nil {
		l.s3 = newS3Client(l.s3cfg)
	}
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3 object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

func newS3Client(cfg S3Config) *s3.Client {
	region := firstNonEmpty(cfg.Region, os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION"), "us-east-1")
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.UsePathStyle,
	}
	accessKey := firstNonEmpty(cfg.AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID"))
	secretKey := firstNonEmpty(cfg.SecretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))
	if accessKey != "" && secretKey != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			os.Getenv("AWS_SESSION_TOKEN"),
		))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
