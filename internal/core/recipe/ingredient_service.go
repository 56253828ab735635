package recipe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/image"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// ImageCompressor 上傳圖片的檢查與壓縮
type ImageCompressor interface {
	ValidateBatch(files []image.FileInfo) error
	Compress(name string, data []byte) (*image.CompressionResult, error)
}

// LabelDetector 影像標籤偵測
type LabelDetector interface {
	Ready(ctx context.Context) error
	Detect(ctx context.Context, images [][]byte) ([]string, error)
}

// IngredientNormalizer 標籤轉食材
type IngredientNormalizer interface {
	Normalize(ctx context.Context, labels []string) []string
}

// Archiver 保存上傳圖片副本
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// UploadedImage 使用者上傳的一張圖片
type UploadedImage struct {
	Name string
	Data []byte
}

// IngredientService 從照片辨識食材：壓縮、標籤偵測、正規化
type IngredientService struct {
	compressor ImageCompressor
	detector   LabelDetector
	normalizer IngredientNormalizer
	archiver   Archiver
}

// NewIngredientService 創建食材識別服務，archiver 可為 nil
func NewIngredientService(compressor ImageCompressor, detector LabelDetector, normalizer IngredientNormalizer, archiver Archiver) *IngredientService {
	return &IngredientService{
		compressor: compressor,
		detector:   detector,
		normalizer: normalizer,
		archiver:   archiver,
	}
}

// DetectIngredients 完整的照片辨識流程。
// 壓縮失敗時改用原檔，尺寸超過上限則拒絕整批；封存失敗只記錄；單張偵測失敗由 detector 略過。
func (s *IngredientService) DetectIngredients(ctx context.Context, uploads []UploadedImage) ([]string, error) {
	start := time.Now()

	infos := make([]image.FileInfo, 0, len(uploads))
	for _, u := range uploads {
		infos = append(infos, image.FileInfo{Name: u.Name, Size: int64(len(u.Data))})
	}
	if err := s.compressor.ValidateBatch(infos); err != nil {
		return nil, err
	}
	if err := s.detector.Ready(ctx); err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(uploads))
	for i, u := range uploads {
		name, contentType, data := u.Name, http.DetectContentType(u.Data), u.Data

		result, err := s.compressor.Compress(u.Name, u.Data)
		if errors.Is(err, image.ErrTooManyPixels) {
			return nil, err
		}
		if err != nil {
			common.LogWarn("圖片壓縮失敗，使用原始檔案",
				zap.Int("image", i+1),
				zap.String("name", u.Name),
				zap.Error(err),
			)
		} else {
			name, contentType, data = result.Name, result.ContentType, result.Data
		}

		if s.archiver != nil {
			if _, err := s.archiver.Archive(ctx, name, contentType, data); err != nil {
				common.LogWarn("圖片封存失敗", zap.String("name", name), zap.Error(err))
			}
		}
		images = append(images, data)
	}

	labels, err := s.detector.Detect(ctx, images)
	if err != nil {
		return nil, err
	}

	ingredients := s.normalizer.Normalize(ctx, labels)
	common.LogInfo("照片食材辨識完成",
		zap.Int("images", len(uploads)),
		zap.Int("labels", len(labels)),
		zap.Strings("ingredients", ingredients),
		zap.Duration("耗時", time.Since(start)),
	)
	return ingredients, nil
}
