package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

const labelDetection = "LABEL_DETECTION"

// GoogleAnnotator Google Cloud Vision 標籤偵測客戶端，第一次使用時才建立連線
type GoogleAnnotator struct {
	credentials     string
	credentialsFile string
	endpoint        string
	maxResults      int64
	timeout         time.Duration

	mu  sync.Mutex
	svc *visionapi.Service
}

// NewGoogleAnnotator 創建 Google Vision 客戶端
func NewGoogleAnnotator(cfg config.VisionConfig) *GoogleAnnotator {
	return &GoogleAnnotator{
		credentials:     cfg.Credentials,
		credentialsFile: cfg.CredentialsFile,
		endpoint:        cfg.Endpoint,
		maxResults:      cfg.MaxResults,
		timeout:         cfg.Timeout,
	}
}

// Ready 解析憑證並建立服務，缺少憑證時回傳 ErrNoCredentials
func (a *GoogleAnnotator) Ready(ctx context.Context) error {
	_, err := a.service(ctx)
	return err
}

func (a *GoogleAnnotator) service(ctx context.Context) (*visionapi.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.svc != nil {
		return a.svc, nil
	}

	var opts []option.ClientOption
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}
	creds, err := ResolveCredentials(a.credentials, a.credentialsFile)
	switch {
	case err == nil:
		opts = append(opts, option.WithCredentialsJSON(creds))
	case a.endpoint != "":
		// 自訂端點（模擬器）不需要驗證
		opts = append(opts, option.WithoutAuthentication())
	default:
		return nil, err
	}

	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	common.LogInfo("Google Vision 客戶端已建立", zap.String("endpoint", a.endpoint))
	a.svc = svc
	return svc, nil
}

// DetectLabels 對單張圖片做標籤偵測
func (a *GoogleAnnotator) DetectLabels(ctx context.Context, image []byte) ([]Label, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image:    &visionapi.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*visionapi.Feature{{Type: labelDetection, MaxResults: a.maxResults}},
		}},
	}
	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("label detection failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return []Label{}, nil
	}

	result := resp.Responses[0]
	if result.Error != nil && result.Error.Message != "" {
		return nil, fmt.Errorf("label detection failed: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	labels := make([]Label, 0, len(result.LabelAnnotations))
	for _, ann := range result.LabelAnnotations {
		if ann == nil || ann.Description == "" {
			continue
		}
		labels = append(labels, Label{Description: ann.Description, Score: ann.Score})
	}
	return labels, nil
}
