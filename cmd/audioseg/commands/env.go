package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/kv"
	"github.com/haivivi/audioseg/pkg/manifest"
	"github.com/haivivi/audioseg/pkg/storage"
	"github.com/haivivi/audioseg/pkg/transcribe"
)

// openStore builds the segment store of a context.
func openStore(c *cli.Context) (storage.FileStore, error) {
	switch c.Storage.Kind {
	case "", "local":
		dir := c.Storage.Dir
		if dir == "" {
			p, err := cli.NewPaths()
			if err != nil {
				return nil, err
			}
			dir = p.SegmentDir()
		}
		l, err := storage.NewLocal(dir)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		slog.Debug("using local store", "root", l.Root())
		return l, nil
	case "s3":
		if c.Storage.Bucket == "" {
			return nil, fmt.Errorf("context %q: storage.bucket is required for s3", c.Name)
		}
		return storage.NewS3(newS3Client(c.Storage), c.Storage.Bucket, c.Storage.Prefix), nil
	}
	return nil, fmt.Errorf("context %q: unknown storage kind %q", c.Name, c.Storage.Kind)
}

func newS3Client(sc cli.StorageConfig) *s3.Client {
	region := sc.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	accessKey, secretKey := sc.AccessKey, sc.SecretKey
	if accessKey == "" {
		accessKey, secretKey = os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	}

	opts := s3.Options{
		Region:       region,
		UsePathStyle: sc.PathStyle,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			if accessKey == "" {
				return aws.Credentials{}, fmt.Errorf("no S3 credentials: set storage.access_key or AWS_ACCESS_KEY_ID")
			}
			return aws.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey, Source: "audioseg"}, nil
		})),
	}
	if sc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(sc.Endpoint)
	}
	return s3.New(opts)
}

// openManifest opens the badger-backed job manifest of a context. The
// returned close function must be called when done.
func openManifest(c *cli.Context) (*manifest.Manifest, func() error, error) {
	dir := c.ManifestDir
	if dir == "" {
		p, err := cli.NewPaths()
		if err != nil {
			return nil, nil, err
		}
		dir = p.ManifestDir()
	}
	if err := cli.Ensure(dir); err != nil {
		return nil, nil, err
	}
	db, err := kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: slog.Default()})
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest %s: %w", dir, err)
	}
	return manifest.New(db), db.Close, nil
}

// newTranscriber builds the transcription backend of a context.
func newTranscriber(ctx context.Context, tc cli.TranscribeConfig) (transcribe.Transcriber, error) {
	var opts []transcribe.Option
	if tc.Model != "" {
		opts = append(opts, transcribe.WithModel(tc.Model))
	}
	if tc.BaseURL != "" {
		opts = append(opts, transcribe.WithBaseURL(tc.BaseURL))
	}
	if tc.Language != "" {
		opts = append(opts, transcribe.WithLanguage(tc.Language))
	}

	switch tc.Provider {
	case "", "openai":
		key := tc.OpenAIAPIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("transcribe.openai_api_key is not set")
		}
		return transcribe.NewOpenAI(key, opts...), nil
	case "gemini":
		key := tc.GeminiAPIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("transcribe.gemini_api_key is not set")
		}
		return transcribe.NewGemini(ctx, key, opts...)
	}
	return nil, fmt.Errorf("unknown transcription provider %q", tc.Provider)
}
