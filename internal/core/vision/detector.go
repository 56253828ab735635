package vision

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// 信心門檻預設值
const (
	DefaultMinScore    = 0.6
	DefaultMediumScore = 0.5
	DefaultConcurrency = 3
)

// genericTerms 籠統的食物標籤，只用於統計信心分佈
var genericTerms = map[string]bool{
	"Food":          true,
	"Produce":       true,
	"Ingredient":    true,
	"Natural foods": true,
	"Vegetable":     true,
	"Fruit":         true,
}

// Label 影像標籤與信心分數
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Annotator 影像標籤服務
type Annotator interface {
	Ready(ctx context.Context) error
	DetectLabels(ctx context.Context, image []byte) ([]Label, error)
}

// Detector 對多張圖片做標籤偵測並以信心分數過濾
type Detector struct {
	annotator   Annotator
	minScore    float64
	mediumScore float64
	concurrency int
}

// Option 設定 Detector
type Option func(*Detector)

// WithThresholds 設定保留門檻與記錄用的中等門檻
func WithThresholds(minScore, mediumScore float64) Option {
	return func(d *Detector) {
		d.minScore = minScore
		d.mediumScore = mediumScore
	}
}

// WithConcurrency 同時進行的圖片數量
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// NewDetector 創建標籤偵測器
func NewDetector(annotator Annotator, opts ...Option) *Detector {
	d := &Detector{
		annotator:   annotator,
		minScore:    DefaultMinScore,
		mediumScore: DefaultMediumScore,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ready 檢查標籤服務是否可用
func (d *Detector) Ready(ctx context.Context) error {
	return d.annotator.Ready(ctx)
}

// Detect 回傳所有圖片中高信心標籤的聯集（保留重複，依圖片順序）。
// 單張圖片失敗只記錄並略過，不影響其他圖片。
func (d *Detector) Detect(ctx context.Context, images [][]byte) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}
	if err := d.annotator.Ready(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	perImage := make([][]string, len(images))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			labels, err := d.annotator.DetectLabels(ctx, img)
			if err != nil {
				common.LogWarn("圖片標籤偵測失敗，略過",
					zap.Int("image", i+1),
					zap.Int("total", len(images)),
					zap.Error(err),
				)
				return nil
			}
			perImage[i] = d.filter(i, labels)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := make([]string, 0)
	for _, labels := range perImage {
		all = append(all, labels...)
	}
	common.LogInfo("圖片標籤偵測完成",
		zap.Int("images", len(images)),
		zap.Int("labels", len(all)),
		zap.Strings("all_labels", all),
		zap.Duration("耗時", time.Since(start)),
	)
	return all, nil
}

// filter 保留分數大於 minScore 的標籤，中等信心只記錄
func (d *Detector) filter(index int, labels []Label) []string {
	high := make([]string, 0, len(labels))
	var medium []string
	var specificSum, genericSum float64
	var specificCount, genericCount int

	for _, l := range labels {
		switch {
		case l.Score > d.minScore:
			high = append(high, l.Description)
		case l.Score >= d.mediumScore:
			medium = append(medium, l.Description)
		}
		if genericTerms[l.Description] {
			genericSum += l.Score
			genericCount++
		} else {
			specificSum += l.Score
			specificCount++
		}
	}

	fields := []zap.Field{
		zap.Int("image", index+1),
		zap.Int("detected", len(labels)),
		zap.Strings("high_confidence", high),
		zap.Strings("medium_confidence", medium),
	}
	if specificCount > 0 {
		fields = append(fields, zap.Float64("specific_avg_confidence", specificSum/float64(specificCount)))
	}
	if genericCount > 0 {
		fields = append(fields, zap.Float64("generic_avg_confidence", genericSum/float64(genericCount)))
	}
	common.LogDebug("圖片標籤信心分佈", fields...)
	return high
}
