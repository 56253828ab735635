package i18n

import (
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage 預設語言代碼，也是訊息表必備的語言
const DefaultLanguage = "en"

var (
	supported = []language.Tag{
		language.English,
		language.Polish,
		language.French,
		language.Spanish,
		language.German,
		language.Italian,
		language.Portuguese,
	}
	matcher = language.NewMatcher(supported)

	// 英文名稱與原生名稱（小寫）對應到語言代碼
	nameIndex = buildNameIndex()

	// 請求未指定語言時使用的語言代碼
	fallback atomic.Value
)

func init() {
	fallback.Store(DefaultLanguage)
}

// SetFallback 設定請求未指定語言時使用的語言，無法辨識時使用英文。回傳生效的語言代碼。
func SetFallback(lang string) string {
	code, ok := lookup(lang)
	if !ok {
		code = DefaultLanguage
	}
	fallback.Store(code)
	return code
}

// Fallback 目前的預設語言代碼
func Fallback() string {
	return fallback.Load().(string)
}

// FallbackName 預設語言的英文名稱，提示詞未指定語言時使用
func FallbackName() string {
	return display.English.Languages().Name(language.Make(Fallback()))
}

func buildNameIndex() map[string]string {
	index := make(map[string]string, len(supported)*2)
	english := display.English.Languages()
	for _, tag := range supported {
		code := baseCode(tag)
		index[strings.ToLower(english.Name(tag))] = code
		index[strings.ToLower(display.Self.Name(tag))] = code
	}
	return index
}

func baseCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// Code 將顯示名稱（"Polish"、"polski"）或語言標籤（"pl"、"pt-BR"）轉為支援的語言代碼，
// 無法辨識時回傳 Fallback()
func Code(lang string) string {
	if code, ok := lookup(lang); ok {
		return code
	}
	return Fallback()
}

func lookup(lang string) (string, bool) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", false
	}
	if code, ok := nameIndex[strings.ToLower(lang)]; ok {
		return code, true
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return baseCode(supported[idx]), true
}

// DisplayName 回傳提示詞中使用的英文語言名稱。
// 不在支援清單內的語言名稱原樣保留，模型仍可用該語言輸出。
func DisplayName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return FallbackName()
	}
	if _, ok := nameIndex[strings.ToLower(lang)]; ok {
		tag := language.Make(nameIndex[strings.ToLower(lang)])
		return display.English.Languages().Name(tag)
	}
	if tag, err := language.Parse(lang); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return lang
}

// FromAcceptLanguage 依 Accept-Language 標頭挑選支援的語言代碼
func FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Fallback()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Fallback()
	}
	return baseCode(supported[idx])
}

// Resolve 優先使用偏好設定中的語言，未設定時退回 Accept-Language
func Resolve(preferred, acceptLanguage string) string {
	if strings.TrimSpace(preferred) != "" {
		return Code(preferred)
	}
	return FromAcceptLanguage(acceptLanguage)
}
