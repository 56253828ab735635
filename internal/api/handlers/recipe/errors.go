package recipe

import (
	"errors"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/image"
	recipeService "github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

// errorResponse 對外回應的錯誤內容
type errorResponse struct {
	Status int
	Key    i18n.MessageKey
	Code   string
}

// classifyError 將服務層錯誤對應到狀態碼與訊息；無法分類時使用 fallback
func classifyError(err error, fallback i18n.MessageKey) errorResponse {
	key, classified := classify(err, fallback)
	return errorResponse{
		Status: common.StatusOf(classified),
		Key:    key,
		Code:   common.CodeOf(classified),
	}
}

// classify 圖片錯誤本身帶有狀態碼，其餘錯誤包裝成預定義錯誤
func classify(err error, fallback i18n.MessageKey) (i18n.MessageKey, error) {
	switch {
	case errors.Is(err, image.ErrNoImages):
		return i18n.MsgNoImages, err
	case errors.Is(err, image.ErrTooManyFiles):
		return i18n.MsgTooManyImages, err
	case errors.Is(err, image.ErrFileTooLarge):
		return i18n.MsgImageTooLarge, err
	case errors.Is(err, image.ErrTooManyPixels):
		return i18n.MsgImageResolution, err
	case errors.Is(err, image.ErrInvalidImage):
		return i18n.MsgImageProcessingFailed, err
	case errors.Is(err, common.ErrMissingCredentials):
		return i18n.MsgUnavailable, common.ErrServiceUnavailable.Wrap(err)
	case errors.Is(err, recipeService.ErrUnparsable):
		return i18n.MsgParseFailed, common.ErrUnparsableOutput.Wrap(err)
	case recipeService.IsInBandError(err), errors.Is(err, recipeService.ErrNoValidRecipes):
		return i18n.MsgUnableToGenerate, common.ErrGenerationFailed.Wrap(err)
	}

	switch provider.Classify(err) {
	case provider.KindTimeout:
		return i18n.MsgTimeout, common.ErrRequestTimeout.Wrap(err)
	case provider.KindRateLimited:
		return i18n.MsgBusy, common.ErrTooManyRequests.Wrap(err)
	case provider.KindUnauthorized, provider.KindNotConfigured:
		return i18n.MsgUnavailable, common.ErrServiceUnavailable.Wrap(err)
	}
	return fallback, common.ErrGenerationFailed.Wrap(err)
}
