package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	recipeService "github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	storageService "github.com/JustynaSek/Fridge-To-Feast/internal/core/storage"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// ClientIDHeader 識別客戶端資料的標頭
const ClientIDHeader = "X-Client-ID"

// Repository 偏好與收藏的儲存操作
type Repository interface {
	LoadPreferences(ctx context.Context, clientID string) (recipeService.UserPreferences, error)
	SavePreferences(ctx context.Context, clientID string, prefs recipeService.UserPreferences) (recipeService.UserPreferences, error)
	ResetPreferences(ctx context.Context, clientID string) error
	SavedRecipes(ctx context.Context, clientID string) ([]storageService.SavedRecipe, error)
	SaveRecipe(ctx context.Context, clientID string, r recipeService.Recipe) (storageService.SavedRecipe, error)
	RemoveRecipe(ctx context.Context, clientID, id string) error
	Cleanup(ctx context.Context, clientID string) (int, error)
	Usage(ctx context.Context, clientID string) (storageService.Usage, error)
	Export(ctx context.Context, clientID string) (storageService.Backup, error)
	Import(ctx context.Context, clientID string, b storageService.Backup) error
}

type clientHeader struct {
	ClientID string `header:"X-Client-ID" binding:"required,max=128,printascii"`
}

// Handler 偏好與收藏處理程序
type Handler struct {
	repo Repository
}

// NewHandler 創建儲存處理程序
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func language(c *gin.Context) string {
	return i18n.FromAcceptLanguage(c.GetHeader("Accept-Language"))
}

// respond 依錯誤的狀態碼與代碼輸出本地化訊息
func respond(c *gin.Context, key i18n.MessageKey, err error) {
	c.JSON(common.StatusOf(err), gin.H{
		"error": i18n.Message(language(c), key),
		"code":  common.CodeOf(err),
	})
}

// clientID 取出客戶端識別碼；缺少時已寫出 400
func clientID(c *gin.Context) (string, bool) {
	var h clientHeader
	if err := c.ShouldBindHeader(&h); err != nil {
		common.LogWarn("缺少或無效的客戶端識別碼",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		respond(c, i18n.MsgMissingClientID, common.ErrInvalidRequest.Wrap(err))
		return "", false
	}
	return h.ClientID, true
}

func (h *Handler) fail(c *gin.Context, clientID string, err error) {
	switch {
	case errors.Is(err, storageService.ErrQuotaExceeded):
		respond(c, i18n.MsgStorageQuotaExceeded, err)
	case errors.Is(err, storageService.ErrNotFound):
		respond(c, i18n.MsgNotFound, common.ErrNotFound.Wrap(err))
	case common.IsValidationError(err):
		respond(c, i18n.MsgInvalidBody, common.ErrInvalidRequest.Wrap(err))
	default:
		common.LogError("儲存操作失敗",
			zap.Error(err),
			zap.String("client_id", clientID),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
		)
		respond(c, i18n.MsgStorageFailed, common.ErrInternalError.Wrap(err))
	}
}

func (h *Handler) bindBody(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("請求主體無效",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		respond(c, i18n.MsgInvalidBody, common.ErrInvalidRequest.Wrap(err))
		return false
	}
	return true
}

// GetPreferences 讀取偏好，未設定時回傳預設值
func (h *Handler) GetPreferences(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	prefs, err := h.repo.LoadPreferences(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// SavePreferences 儲存偏好並回傳補齊預設值後的內容
func (h *Handler) SavePreferences(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	var prefs recipeService.UserPreferences
	if !h.bindBody(c, &prefs) {
		return
	}
	saved, err := h.repo.SavePreferences(c.Request.Context(), id, prefs)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ResetPreferences 清除偏好
func (h *Handler) ResetPreferences(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	if err := h.repo.ResetPreferences(c.Request.Context(), id); err != nil {
		h.fail(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRecipes 列出收藏食譜
func (h *Handler) ListRecipes(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	recipes, err := h.repo.SavedRecipes(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// SaveRecipe 收藏一份食譜
func (h *Handler) SaveRecipe(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	var r recipeService.Recipe
	if !h.bindBody(c, &r) {
		return
	}
	saved, err := h.repo.SaveRecipe(c.Request.Context(), id, r)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// RemoveRecipe 刪除一份收藏
func (h *Handler) RemoveRecipe(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	if err := h.repo.RemoveRecipe(c.Request.Context(), id, c.Param("id")); err != nil {
		h.fail(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Usage 儲存空間用量
func (h *Handler) Usage(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	usage, err := h.repo.Usage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// Cleanup 移除過期收藏
func (h *Handler) Cleanup(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	removed, err := h.repo.Cleanup(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Export 下載完整備份
func (h *Handler) Export(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	backup, err := h.repo.Export(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	filename := fmt.Sprintf("fridge-to-feast-backup-%s.json", backup.ExportDate.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, backup)
}

// Import 還原備份並回傳還原後的用量
func (h *Handler) Import(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	var backup storageService.Backup
	if !h.bindBody(c, &backup) {
		return
	}
	if err := h.repo.Import(c.Request.Context(), id, backup); err != nil {
		h.fail(c, id, err)
		return
	}
	usage, err := h.repo.Usage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
