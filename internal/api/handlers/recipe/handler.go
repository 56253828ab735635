package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/image"
	recipeService "github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// RecipeGenerator 食譜生成
type RecipeGenerator interface {
	Generate(ctx context.Context, req recipeService.GenerateRequest) ([]recipeService.Recipe, error)
	Stream(ctx context.Context, req recipeService.GenerateRequest, emit func(string) error) (*recipeService.StreamParser, error)
}

// IngredientDetector 照片食材辨識
type IngredientDetector interface {
	DetectIngredients(ctx context.Context, uploads []recipeService.UploadedImage) ([]string, error)
}

// Handler 食譜與照片辨識處理程序
type Handler struct {
	generator    RecipeGenerator
	detector     IngredientDetector
	maxFiles     int
	maxFileBytes int64
}

// NewHandler 創建新的食譜處理程序
func NewHandler(generator RecipeGenerator, detector IngredientDetector, maxFiles int, maxFileBytes int64) *Handler {
	RegisterValidators()
	if maxFiles <= 0 {
		maxFiles = image.DefaultMaxFiles
	}
	if maxFileBytes <= 0 {
		maxFileBytes = image.DefaultMaxFileBytes
	}
	return &Handler{
		generator:    generator,
		detector:     detector,
		maxFiles:     maxFiles,
		maxFileBytes: maxFileBytes,
	}
}

// bind 解析生成請求並決定回應語言；失敗時已寫出 400
func (h *Handler) bind(c *gin.Context) (recipeService.GenerateRequest, bool) {
	acceptLanguage := c.GetHeader("Accept-Language")
	requestID := requestid.Get(c)

	req, key, err := bindGenerateRequest(c)
	if err != nil {
		lang := i18n.FromAcceptLanguage(acceptLanguage)
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		invalid := common.ErrInvalidRequest.Wrap(err)
		c.JSON(common.StatusOf(invalid), gin.H{
			"error": i18n.Message(lang, key),
			"code":  common.CodeOf(invalid),
		})
		return recipeService.GenerateRequest{}, false
	}

	preferred := ""
	if req.Preferences != nil {
		preferred = req.Preferences.Language
	}
	return recipeService.GenerateRequest{
		Ingredients: req.Ingredients,
		Preferences: req.Preferences,
		Language:    i18n.Resolve(preferred, acceptLanguage),
		RequestID:   requestID,
	}, true
}

func (h *Handler) fail(c *gin.Context, err error, lang string, fallback i18n.MessageKey) {
	resp := classifyError(err, fallback)
	common.LogError("請求處理失敗",
		zap.Error(err),
		zap.Int("status", resp.Status),
		zap.String("code", resp.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(resp.Status, gin.H{
		"error": i18n.Message(lang, resp.Key),
		"code":  resp.Code,
	})
}

// GenerateRecipe 以食材與偏好一次生成完整食譜
func (h *Handler) GenerateRecipe(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	recipes, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, req.Language, i18n.MsgGenerationFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// GenerateRecipeStream 將模型輸出以純文字逐段回傳。
// 第一個位元組送出前失敗時回傳一般 JSON 錯誤；之後失敗則在內容後附上換行與錯誤物件。
func (h *Handler) GenerateRecipeStream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	started := false
	emit := func(delta string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Content-Type-Options", "nosniff")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(c.Writer, delta); err != nil {
			return fmt.Errorf("write stream: %w", err)
		}
		c.Writer.Flush()
		return nil
	}

	_, err := h.generator.Stream(c.Request.Context(), req, emit)
	if err == nil {
		return
	}
	if !started {
		h.fail(c, err, req.Language, i18n.MsgStreamFailed)
		return
	}

	// 模型自行回報的錯誤已經在串流內容中
	if recipeService.IsInBandError(err) {
		return
	}
	resp := classifyError(err, i18n.MsgStreamFailed)
	common.LogError("串流中途失敗",
		zap.Error(err),
		zap.String("code", resp.Code),
		zap.String("request_id", req.RequestID),
	)
	body, _ := json.Marshal(gin.H{"error": i18n.Message(req.Language, resp.Key)})
	if _, werr := c.Writer.Write(append([]byte("\n"), body...)); werr != nil {
		common.LogWarn("寫入串流錯誤失敗", zap.Error(werr), zap.String("request_id", req.RequestID))
		return
	}
	c.Writer.Flush()
}

// ProcessImages 從上傳照片辨識食材
func (h *Handler) ProcessImages(c *gin.Context) {
	lang := i18n.FromAcceptLanguage(c.GetHeader("Accept-Language"))
	requestID := requestid.Get(c)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, image.ErrFileTooLarge.Wrap(err), lang, i18n.MsgImageProcessingFailed)
			return
		}
		h.fail(c, image.ErrNoImages.Wrap(err), lang, i18n.MsgImageProcessingFailed)
		return
	}
	defer func() {
		if err := form.RemoveAll(); err != nil {
			common.LogWarn("清除暫存上傳檔失敗", zap.Error(err))
		}
	}()

	// 讀取檔案內容前先檢查數量與大小
	files := form.File["images"]
	switch {
	case len(files) == 0:
		h.fail(c, image.ErrNoImages, lang, i18n.MsgImageProcessingFailed)
		return
	case len(files) > h.maxFiles:
		h.fail(c, image.ErrTooManyFiles.Wrap(fmt.Errorf("%d files, limit %d", len(files), h.maxFiles)), lang, i18n.MsgImageProcessingFailed)
		return
	}
	for _, fh := range files {
		if fh.Size > h.maxFileBytes {
			h.fail(c, image.ErrFileTooLarge.Wrap(fmt.Errorf("%s: %d bytes", fh.Filename, fh.Size)), lang, i18n.MsgImageProcessingFailed)
			return
		}
	}

	uploads := make([]recipeService.UploadedImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.fail(c, image.ErrInvalidImage.Wrap(err), lang, i18n.MsgImageProcessingFailed)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.fail(c, image.ErrInvalidImage.Wrap(err), lang, i18n.MsgImageProcessingFailed)
			return
		}
		uploads = append(uploads, recipeService.UploadedImage{Name: fh.Filename, Data: data})
	}

	common.LogInfo("收到照片辨識請求",
		zap.Int("files", len(uploads)),
		zap.String("request_id", requestID),
	)

	ingredients, err := h.detector.DetectIngredients(c.Request.Context(), uploads)
	if err != nil {
		h.fail(c, err, lang, i18n.MsgImageProcessingFailed)
		return
	}
	if ingredients == nil {
		ingredients = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients})
}
