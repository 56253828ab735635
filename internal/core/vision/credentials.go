package vision

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// ErrNoCredentials 找不到影像標籤服務憑證
var ErrNoCredentials = common.NewError(common.ErrCodeMissingCredential, "google vision credentials not found", http.StatusInternalServerError, nil)

// ResolveCredentials 依序嘗試：檔案路徑、JSON 內容、base64 編碼的 JSON，
// 都沒有時讀取 fallbackFile。
func ResolveCredentials(value, fallbackFile string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		if data, err := readCredentialsFile(value); err == nil {
			return data, nil
		}
		if strings.HasPrefix(value, "{") {
			if json.Valid([]byte(value)) {
				return []byte(value), nil
			}
			return nil, ErrNoCredentials.Wrap(errors.New("inline credentials are not valid JSON"))
		}
		if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && json.Valid(decoded) {
			return decoded, nil
		}
	}

	if fallbackFile != "" {
		if data, err := readCredentialsFile(fallbackFile); err == nil {
			return data, nil
		}
	}

	if value != "" {
		return nil, ErrNoCredentials.Wrap(fmt.Errorf("credentials value is neither a readable file, JSON nor base64 JSON"))
	}
	return nil, ErrNoCredentials
}

func readCredentialsFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", path)
	}
	return data, nil
}
