package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// MB 檔案大小單位
const MB = 1024 * 1024

// 批次限制預設值
const (
	DefaultMaxFiles     = 5
	DefaultMaxFileBytes = 25 * MB
)

// MaxPixels 解碼前檢查的像素上限，檔案很小但宣告巨大尺寸的圖片一律拒絕
const MaxPixels = 50_000_000

var (
	ErrNoImages      = common.NewError(common.ErrCodeNoImages, "no images provided", http.StatusBadRequest, nil)
	ErrTooManyFiles  = common.NewError(common.ErrCodeTooManyImages, "too many images", http.StatusBadRequest, nil)
	ErrFileTooLarge  = common.NewError(common.ErrCodeImageTooLarge, "image exceeds size limit", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyPixels = common.NewError(common.ErrCodeImageDimensions, "image dimensions exceed limit", http.StatusRequestEntityTooLarge, nil)
	ErrInvalidImage  = common.NewError(common.ErrCodeInvalidImage, "invalid image", http.StatusBadRequest, nil)
)

// Options 壓縮參數
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64 // 0~1
}

// tiers 依原始大小由大到小排列，第一個符合的生效
var tiers = []struct {
	above int64
	opts  Options
}{
	{10 * MB, Options{MaxWidth: 800, MaxHeight: 800, Quality: 0.6}},
	{5 * MB, Options{MaxWidth: 1024, MaxHeight: 1024, Quality: 0.7}},
	{2 * MB, Options{MaxWidth: 1200, MaxHeight: 1200, Quality: 0.8}},
}

var defaultTier = Options{MaxWidth: 1500, MaxHeight: 1500, Quality: 0.9}

// TierFor 依原始檔案大小選擇壓縮等級，檔案越大壓縮越積極
func TierFor(size int64) Options {
	for _, t := range tiers {
		if size > t.above {
			return t.opts
		}
	}
	return defaultTier
}

// CalculateDimensions 等比例縮放到 maxW x maxH 之內，不放大
func CalculateDimensions(width, height, maxW, maxH int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	scale := math.Min(float64(maxW)/float64(width), float64(maxH)/float64(height))
	if scale >= 1 {
		return width, height
	}
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// FileInfo 壓縮前的檔案資訊
type FileInfo struct {
	Name string
	Size int64
}

// CompressionResult 單一檔案的壓縮結果
type CompressionResult struct {
	Name           string
	ContentType    string
	Data           []byte
	OriginalSize   int64
	CompressedSize int64
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	Ratio          float64 // 減少的百分比
	Options        Options
}

// Compressor 圖片壓縮服務
type Compressor struct {
	maxFiles     int
	maxFileBytes int64
}

// NewCompressor 創建圖片壓縮服務，非正值使用預設限制
func NewCompressor(maxFiles int, maxFileBytes int64) *Compressor {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &Compressor{maxFiles: maxFiles, maxFileBytes: maxFileBytes}
}

// ValidateBatch 在壓縮前檢查數量與大小
func (c *Compressor) ValidateBatch(files []FileInfo) error {
	if len(files) == 0 {
		return ErrNoImages
	}
	if len(files) > c.maxFiles {
		return ErrTooManyFiles.Wrap(fmt.Errorf("%d files, limit %d", len(files), c.maxFiles))
	}
	for _, f := range files {
		if f.Size > c.maxFileBytes {
			return ErrFileTooLarge.Wrap(fmt.Errorf("%s is %d bytes, limit %d", f.Name, f.Size, c.maxFileBytes))
		}
	}
	return nil
}

// Compress 依檔案大小自動選擇壓縮等級
func (c *Compressor) Compress(name string, data []byte) (*CompressionResult, error) {
	return c.CompressWith(name, data, TierFor(int64(len(data))))
}

// CompressWith 以指定參數縮放並重新編碼為 JPEG。
// 解碼或編碼失敗一律回傳錯誤，由呼叫端決定是否改用原檔。
func (c *Compressor) CompressWith(name string, data []byte, opts Options) (*CompressionResult, error) {
	start := time.Now()

	if err := checkDimensions(name, data); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage.Wrap(fmt.Errorf("decode %s: %w", name, err))
	}

	bounds := src.Bounds()
	width, height := CalculateDimensions(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	// JPEG 沒有透明通道，先鋪白底
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return nil, ErrInvalidImage.Wrap(fmt.Errorf("encode %s: %w", name, err))
	}

	result := &CompressionResult{
		Name:           jpegName(name),
		ContentType:    "image/jpeg",
		Data:           buf.Bytes(),
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(buf.Len()),
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
		Width:          width,
		Height:         height,
		Options:        opts,
	}
	if result.OriginalSize > 0 {
		result.Ratio = (1 - float64(result.CompressedSize)/float64(result.OriginalSize)) * 100
	}

	common.LogInfo("圖片壓縮完成",
		zap.String("name", name),
		zap.String("format", format),
		zap.Int64("original_size", result.OriginalSize),
		zap.Int64("compressed_size", result.CompressedSize),
		zap.String("dimensions", fmt.Sprintf("%dx%d -> %dx%d", bounds.Dx(), bounds.Dy(), width, height)),
		zap.Float64("ratio", math.Round(result.Ratio*10)/10),
		zap.Duration("耗時", time.Since(start)),
	)
	return result, nil
}

// checkDimensions 只讀取標頭確認格式與尺寸，避免解碼時配置過大的記憶體
func checkDimensions(name string, data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ErrInvalidImage.Wrap(fmt.Errorf("decode %s: %w", name, err))
	}
	if !isSupportedFormat(format) {
		return ErrInvalidImage.Wrap(fmt.Errorf("unsupported image format: %s", format))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrInvalidImage.Wrap(fmt.Errorf("%s has invalid dimensions %dx%d", name, cfg.Width, cfg.Height))
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return ErrTooManyPixels.Wrap(fmt.Errorf("%s is %dx%d, limit %d pixels", name, cfg.Width, cfg.Height, MaxPixels))
	}
	return nil
}

func jpegQuality(q float64) int {
	quality := int(math.Round(q * 100))
	switch {
	case quality < 1:
		return 1
	case quality > 100:
		return 100
	default:
		return quality
	}
}

func jpegName(name string) string {
	if name == "" {
		return "image.jpg"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
