package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/api"
	"github.com/JustynaSek/Fridge-To-Feast/internal/api/handlers/health"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/cache"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
	aiService "github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/service"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/image"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/recipe"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/storage"
	"github.com/JustynaSek/Fridge-To-Feast/internal/core/vision"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/objectstore"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/i18n"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 請求未指定語言時的預設語言
	lang := i18n.SetFallback(cfg.I18n.DefaultLanguage)
	if lang != i18n.DefaultLanguage {
		common.LogInfo("使用預設語言", zap.String("language", lang))
	}

	ctx := context.Background()

	// 對話模型與快取
	ai := aiService.NewService(aiService.NewProvider(cfg), cache.New(ctx, cfg))
	defer func() {
		if err := ai.Close(); err != nil {
			common.LogWarn("Failed to close AI service", zap.Error(err))
		}
	}()
	if !ai.Configured() {
		// 缺少金鑰時仍啟動，請求時回傳暫時不可用
		common.LogWarn("Chat model is not configured", zap.String("provider", cfg.LLM.Provider))
	}
	common.LogInfo("載入設定",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", ai.Model()),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	filterModel := cfg.LLM.FilterModel
	if cfg.LLM.Provider == "gemini" {
		filterModel = ai.Model()
	}
	generator := recipe.NewService(ai,
		recipe.WithModel(ai.Model()),
		recipe.WithGenerationLimits(cfg.LLM.MaxTokens, cfg.LLM.Temperature),
	)
	normalizer := recipe.NewNormalizer(ai,
		recipe.WithFilterModel(filterModel),
		recipe.WithFilterLimits(cfg.LLM.FilterMaxTokens, cfg.LLM.FilterTemperature),
	)

	// 照片辨識
	detector := vision.NewDetector(vision.NewGoogleAnnotator(cfg.Vision),
		vision.WithThresholds(cfg.Vision.MinScore, cfg.Vision.MediumScore),
		vision.WithConcurrency(cfg.Vision.Concurrency),
	)
	ingredients := recipe.NewIngredientService(
		image.NewCompressor(cfg.Image.MaxFiles, cfg.Image.MaxFileBytes),
		detector,
		normalizer,
		objectstore.New(ctx, cfg.Archive),
	)

	// 偏好與收藏
	checks := map[string]health.Check{
		"chat": func(context.Context) error {
			if !ai.Configured() {
				return provider.ErrNotConfigured
			}
			return nil
		},
		"vision": detector.Ready,
	}
	store, closeStore := newStore(ctx, cfg, checks)
	defer closeStore()
	manager := storage.NewManager(store,
		storage.WithQuota(cfg.Storage.QuotaBytes, cfg.Storage.WarnRatio),
		storage.WithRetention(cfg.Storage.Retention),
	)

	router, stop := api.SetupRouter(cfg, api.Services{
		Generator: generator,
		Detector:  ingredients,
		Storage:   manager,
		Checks:    checks,
		Stats:     map[string]health.StatsFunc{"cache": ai.CacheStats},
	})
	defer stop()

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// newStore 依設定選擇儲存後端；Redis 無法連線時退回記憶體
func newStore(ctx context.Context, cfg *config.Config, checks map[string]health.Check) (storage.Store, func()) {
	if cfg.Storage.Backend != "redis" {
		return storage.NewMemoryStore(), func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		common.LogWarn("Redis 儲存無法連線，改用記憶體儲存", zap.Error(err))
		return storage.NewMemoryStore(), func() {}
	}
	checks["storage"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	common.LogInfo("使用 Redis 儲存", zap.String("addr", cfg.Redis.Addr))
	return storage.NewRedisStore(client), func() { closeRedis(client) }
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		common.LogWarn("Failed to close Redis", zap.Error(err))
	}
}
