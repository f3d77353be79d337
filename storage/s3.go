package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"

	"silvereye/apperr"
	"silvereye/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectAPI ist der Teil des S3-Clients, S3Source benötigt.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client. Mit S3_URL wird ein S3-kompatibler Endpunkt verwendet.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3Key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")))
	}
	if cfg.S3URL != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.S3URL,
					SigningRegion:     cfg.S3Region,
					HostnameImmutable: true,
				}, nil
			},
		)
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

// S3Source kapselt Up- und Download in einem konfigurierten Bucket. Sie dient als Quelle für
// die Mapping-Tabelle und als Ablage für umgewandelte Dateien und Vorlagen.
type S3Source struct {
	Client  ObjectAPI
	Bucket  string
	BaseURL string
	Logger  *zap.Logger
}

// NewS3Source erstellt eine S3Source aus der Konfiguration.
func NewS3Source(client ObjectAPI, cfg *config.Config, logger *zap.Logger) *S3Source {
	return &S3Source{
		Client:  client,
		Bucket:  cfg.S3Bucket,
		BaseURL: cfg.S3URL,
		Logger:  logger.With(zap.String("bucket", cfg.S3Bucket)),
	}
}

// Name gibt den Namen der Quelle zurück.
func (b *S3Source) Name() string { return "s3" }

// Fetch lädt das Objekt unter key.
func (b *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := b.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", b.Bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	b.Logger.Debug("Objekt geladen", zap.String("key", key), zap.Int("bytes", len(data)))
	return data, nil
}

// UploadFile lädt data unter key hoch und gibt den Link zurück.
func (b *S3Source) UploadFile(ctx context.Context, key, contentType string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", b.Bucket, key, err)
	}
	b.Logger.Info("Objekt hochgeladen", zap.String("key", key), zap.Int("bytes", len(data)))
	return b.Link(key), nil
}

// Link liefert die Adresse eines Objekts.
func (b *S3Source) Link(key string) string {
	if b.BaseURL == "" {
		return fmt.Sprintf("s3://%s/%s", b.Bucket, key)
	}
	return fmt.Sprintf("%s/%s/%s", b.BaseURL, b.Bucket, key)
}

// submissionIDPattern erlaubt nur ein einzelnes Pfadsegment ohne Punkte, z.B. eine UUID.
var submissionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidateSubmissionID prüft, ob id gefahrlos als Verzeichnisname und Objekt-Key-Segment dient.
func ValidateSubmissionID(id string) error {
	if !submissionIDPattern.MatchString(id) {
		return apperr.DataFormat("storage.ValidateSubmissionID", "invalid submission_id %q", id)
	}
	return nil
}

// ArtifactKey bildet den Objekt-Key für eine Datei einer Einreichung.
func ArtifactKey(submissionID, name string) string {
	return path.Join("submissions", submissionID, name)
}

// TemplateKey bildet den Objekt-Key für eine Vorlage.
func TemplateKey(name string) string {
	return path.Join("templates", name)
}
