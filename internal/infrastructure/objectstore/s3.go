package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// Archiver 保存上傳圖片的副本
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Nop 不做任何事的封存
type Nop struct{}

// Archive 直接回傳空鍵
func (Nop) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return "", nil
}

// PutObjectAPI S3 上傳介面
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver 將圖片上傳到 S3
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver 以預設 AWS 憑證鏈建立 S3 客戶端
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ArchiverWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiverWithClient 使用既有的客戶端
func NewS3ArchiverWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive 上傳並回傳物件鍵，格式為 prefix/yyyy/mm/dd/uuid-name
func (a *S3Archiver) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := a.objectKey(name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	common.LogDebug("圖片已封存", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int("size", len(data)))
	return key, nil
}

func (a *S3Archiver) objectKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image.jpg"
	}
	return path.Join(a.prefix, a.now().UTC().Format("2006/01/02"), common.GenerateUUID()+"-"+base)
}

// New 依設定建立封存；停用或初始化失敗時回傳 Nop
func New(ctx context.Context, cfg config.ArchiveConfig) Archiver {
	if !cfg.Enabled {
		return Nop{}
	}
	archiver, err := NewS3Archiver(ctx, cfg)
	if err != nil {
		common.LogWarn("S3 封存初始化失敗，停用封存", zap.Error(err))
		return Nop{}
	}
	common.LogInfo("啟用 S3 圖片封存", zap.String("bucket", cfg.Bucket), zap.String("prefix", cfg.Prefix))
	return archiver
}
