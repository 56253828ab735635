package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// 預設限制
const (
	DefaultQuotaBytes = 25 * 1024 * 1024
	DefaultWarnRatio  = 0.8
	DefaultRetention  = 30 * 24 * time.Hour

	BackupVersion = "1.0"
	BackupApp     = "Fridge to Feast"
)

// ErrQuotaExceeded 寫入後會超過儲存配額
var ErrQuotaExceeded = common.NewError(common.ErrCodeStorageQuota, "storage quota exceeded", http.StatusRequestEntityTooLarge, nil)

// SavedRecipe 使用者收藏的食譜
type SavedRecipe struct {
	recipe.Recipe
	ID      string    `json:"id"`
	SavedAt time.Time `json:"savedAt"`
}

// Usage 儲存空間使用情況
type Usage struct {
	UsedBytes      int64   `json:"usage"`
	QuotaBytes     int64   `json:"quota"`
	AvailableBytes int64   `json:"available"`
	Percentage     float64 `json:"percentage"`
	Warning        bool    `json:"warning"`
	RecipeCount    int     `json:"recipeCount"`
	HasPreferences bool    `json:"hasPreferences"`
}

// Backup 匯出／匯入格式
type Backup struct {
	Recipes     []SavedRecipe           `json:"recipes"`
	Preferences *recipe.UserPreferences `json:"preferences"`
	ExportDate  time.Time               `json:"exportDate"`
	Version     string                  `json:"version"`
	App         string                  `json:"app"`
}

// Manager 以客戶端為單位管理偏好與收藏食譜
type Manager struct {
	store     Store
	quota     int64
	warnRatio float64
	retention time.Duration
	now       func() time.Time
	locks     [32]sync.Mutex
}

// ManagerOption 設定 Manager
type ManagerOption func(*Manager)

// WithQuota 設定配額與警告比例
func WithQuota(quotaBytes int64, warnRatio float64) ManagerOption {
	return func(m *Manager) {
		if quotaBytes > 0 {
			m.quota = quotaBytes
		}
		if warnRatio > 0 && warnRatio < 1 {
			m.warnRatio = warnRatio
		}
	}
}

// WithRetention 設定收藏保留期限
func WithRetention(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock 指定時間來源
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager 創建儲存管理器
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		quota:     DefaultQuotaBytes,
		warnRatio: DefaultWarnRatio,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lock 同一客戶端的讀改寫依序執行
func (m *Manager) lock(clientID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	mu := &m.locks[h.Sum32()%uint32(len(m.locks))]
	mu.Lock()
	return mu.Unlock
}

// LoadPreferences 讀取偏好，尚未設定時回傳預設值
func (m *Manager) LoadPreferences(ctx context.Context, clientID string) (recipe.UserPreferences, error) {
	prefs, _, err := m.loadPreferences(ctx, Scoped(m.store, clientID))
	return prefs, err
}

func (m *Manager) loadPreferences(ctx context.Context, store Store) (recipe.UserPreferences, bool, error) {
	data, err := store.Get(ctx, KeyPreferences)
	if errors.Is(err, ErrNotFound) {
		return recipe.DefaultPreferences(), false, nil
	}
	if err != nil {
		return recipe.UserPreferences{}, false, err
	}

	var prefs recipe.UserPreferences
	if err := common.ParseJSONBytes(data, &prefs); err != nil {
		// 損毀的資料直接清除
		common.LogWarn("偏好資料損毀，已重設", zap.Error(err))
		_ = store.Remove(ctx, KeyPreferences)
		return recipe.DefaultPreferences(), false, nil
	}
	return prefs.WithDefaults(), true, nil
}

// SavePreferences 儲存偏好並回傳補齊預設值後的結果
func (m *Manager) SavePreferences(ctx context.Context, clientID string, prefs recipe.UserPreferences) (recipe.UserPreferences, error) {
	defer m.lock(clientID)()
	store := Scoped(m.store, clientID)

	prefs = prefs.WithDefaults()
	data, err := json.Marshal(prefs)
	if err != nil {
		return prefs, fmt.Errorf("failed to encode preferences: %w", err)
	}

	recipesData, err := m.rawRecipes(ctx, store)
	if err != nil {
		return prefs, err
	}
	if err := m.checkQuota(int64(len(data) + len(recipesData))); err != nil {
		return prefs, err
	}
	return prefs, store.Set(ctx, KeyPreferences, data)
}

// ResetPreferences 清除偏好
func (m *Manager) ResetPreferences(ctx context.Context, clientID string) error {
	defer m.lock(clientID)()
	return Scoped(m.store, clientID).Remove(ctx, KeyPreferences)
}

// SavedRecipes 列出收藏食譜
func (m *Manager) SavedRecipes(ctx context.Context, clientID string) ([]SavedRecipe, error) {
	return m.loadRecipes(ctx, Scoped(m.store, clientID))
}

func (m *Manager) rawRecipes(ctx context.Context, store Store) ([]byte, error) {
	data, err := store.Get(ctx, KeySavedRecipes)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) loadRecipes(ctx context.Context, store Store) ([]SavedRecipe, error) {
	data, err := m.rawRecipes(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []SavedRecipe{}, nil
	}

	var recipes []SavedRecipe
	if err := common.ParseJSONBytes(data, &recipes); err != nil {
		common.LogWarn("收藏資料損毀，已清除", zap.Error(err))
		_ = store.Remove(ctx, KeySavedRecipes)
		return []SavedRecipe{}, nil
	}
	return recipes, nil
}

func (m *Manager) writeRecipes(ctx context.Context, store Store, recipes []SavedRecipe) error {
	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("failed to encode saved recipes: %w", err)
	}
	prefsData, err := store.Get(ctx, KeyPreferences)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := m.checkQuota(int64(len(data) + len(prefsData))); err != nil {
		return err
	}
	return store.Set(ctx, KeySavedRecipes, data)
}

// SaveRecipe 新增收藏，指派 ID 與收藏時間
func (m *Manager) SaveRecipe(ctx context.Context, clientID string, r recipe.Recipe) (SavedRecipe, error) {
	if !r.Valid() {
		return SavedRecipe{}, common.NewValidationError("recipe must have a title, ingredients and instructions")
	}

	defer m.lock(clientID)()
	store := Scoped(m.store, clientID)

	recipes, err := m.loadRecipes(ctx, store)
	if err != nil {
		return SavedRecipe{}, err
	}
	saved := SavedRecipe{Recipe: r, ID: common.GenerateUUID(), SavedAt: m.now().UTC()}
	if err := m.writeRecipes(ctx, store, append(recipes, saved)); err != nil {
		return SavedRecipe{}, err
	}

	common.LogInfo("收藏食譜", zap.String("client_id", clientID), zap.String("recipe_id", saved.ID))
	return saved, nil
}

// RemoveRecipe 刪除收藏，不存在時回傳 ErrNotFound
func (m *Manager) RemoveRecipe(ctx context.Context, clientID, id string) error {
	defer m.lock(clientID)()
	store := Scoped(m.store, clientID)

	recipes, err := m.loadRecipes(ctx, store)
	if err != nil {
		return err
	}
	kept := recipes[:0]
	found := false
	for _, r := range recipes {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrNotFound
	}
	return m.writeRecipes(ctx, store, kept)
}

// Cleanup 移除超過保留期限的收藏，回傳移除數量。沒有收藏時間的資料視為過期。
func (m *Manager) Cleanup(ctx context.Context, clientID string) (int, error) {
	defer m.lock(clientID)()
	store := Scoped(m.store, clientID)

	recipes, err := m.loadRecipes(ctx, store)
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-m.retention)
	kept := make([]SavedRecipe, 0, len(recipes))
	for _, r := range recipes {
		if r.SavedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(recipes) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := m.writeRecipes(ctx, store, kept); err != nil {
		return 0, err
	}
	common.LogInfo("清理過期收藏", zap.String("client_id", clientID), zap.Int("removed", removed))
	return removed, nil
}

// Usage 計算目前用量
func (m *Manager) Usage(ctx context.Context, clientID string) (Usage, error) {
	store := Scoped(m.store, clientID)

	recipesData, err := m.rawRecipes(ctx, store)
	if err != nil {
		return Usage{}, err
	}
	prefsData, err := store.Get(ctx, KeyPreferences)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Usage{}, err
	}
	recipes, err := m.loadRecipes(ctx, store)
	if err != nil {
		return Usage{}, err
	}

	used := int64(len(recipesData) + len(prefsData))
	u := Usage{
		UsedBytes:      used,
		QuotaBytes:     m.quota,
		AvailableBytes: m.quota - used,
		Percentage:     float64(used) / float64(m.quota) * 100,
		RecipeCount:    len(recipes),
		HasPreferences: len(prefsData) > 0,
	}
	u.Warning = u.Percentage > m.warnRatio*100
	if u.Warning {
		common.LogWarn("儲存空間即將用盡",
			zap.String("client_id", clientID),
			zap.Float64("percentage", u.Percentage),
		)
	}
	return u, nil
}

// Export 匯出所有資料
func (m *Manager) Export(ctx context.Context, clientID string) (Backup, error) {
	store := Scoped(m.store, clientID)

	recipes, err := m.loadRecipes(ctx, store)
	if err != nil {
		return Backup{}, err
	}
	b := Backup{
		Recipes:    recipes,
		ExportDate: m.now().UTC(),
		Version:    BackupVersion,
		App:        BackupApp,
	}
	prefs, ok, err := m.loadPreferences(ctx, store)
	if err != nil {
		return Backup{}, err
	}
	if ok {
		b.Preferences = &prefs
	}
	return b, nil
}

// Import 以備份內容覆蓋收藏與偏好；備份中缺少的部分保持不變
func (m *Manager) Import(ctx context.Context, clientID string, b Backup) error {
	defer m.lock(clientID)()
	store := Scoped(m.store, clientID)

	var recipesData, prefsData []byte
	var err error
	if b.Recipes != nil {
		now := m.now().UTC()
		for i := range b.Recipes {
			if !b.Recipes[i].Valid() {
				return common.NewValidationError(fmt.Sprintf("recipe %d must have a title, ingredients and instructions", i))
			}
			if b.Recipes[i].ID == "" {
				b.Recipes[i].ID = common.GenerateUUID()
			}
			// 缺少收藏時間時以匯入時間為準
			if b.Recipes[i].SavedAt.IsZero() {
				b.Recipes[i].SavedAt = now
			}
		}
		if recipesData, err = json.Marshal(b.Recipes); err != nil {
			return fmt.Errorf("failed to encode saved recipes: %w", err)
		}
	} else if recipesData, err = m.rawRecipes(ctx, store); err != nil {
		return err
	}
	if b.Preferences != nil {
		if prefsData, err = json.Marshal(b.Preferences.WithDefaults()); err != nil {
			return fmt.Errorf("failed to encode preferences: %w", err)
		}
	} else if prefsData, err = store.Get(ctx, KeyPreferences); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := m.checkQuota(int64(len(recipesData) + len(prefsData))); err != nil {
		return err
	}
	if b.Recipes != nil {
		if err := store.Set(ctx, KeySavedRecipes, recipesData); err != nil {
			return err
		}
	}
	if b.Preferences != nil {
		if err := store.Set(ctx, KeyPreferences, prefsData); err != nil {
			return err
		}
	}

	common.LogInfo("匯入資料",
		zap.String("client_id", clientID),
		zap.Int("recipes", len(b.Recipes)),
		zap.Bool("preferences", b.Preferences != nil),
	)
	return nil
}

func (m *Manager) checkQuota(size int64) error {
	if size > m.quota {
		return ErrQuotaExceeded.Wrap(fmt.Errorf("%d bytes, quota %d", size, m.quota))
	}
	return nil
}
