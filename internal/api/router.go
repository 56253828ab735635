package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/api/handlers/health"
	recipeHandler "github.com/JustynaSek/Fridge-To-Feast/internal/api/handlers/recipe"
	storageHandler "github.com/JustynaSek/Fridge-To-Feast/internal/api/handlers/storage"
	"github.com/JustynaSek/Fridge-To-Feast/internal/api/middleware"
	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// 請求體大小上限未設定時的預設值（5 張 25MB 圖片加上表單開銷）
const defaultMaxBodySize = 130 << 20

// Services 路由需要的服務
type Services struct {
	Generator recipeHandler.RecipeGenerator
	Detector  recipeHandler.IngredientDetector
	Storage   storageHandler.Repository
	Checks    map[string]health.Check
	Stats     map[string]health.StatsFunc
}

// SetupRouter 設置路由，回傳的 stop 用於關閉背景清理工作
func SetupRouter(cfg *config.Config, svc Services) (*gin.Engine, func()) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	maxBodySize := cfg.Image.MaxBodyBytes
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	// 生成類路由的保護
	var guards []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		guards = append(guards, middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)))
	}
	stop := func() {}
	if cfg.DedupWindow > 0 {
		dedup := middleware.NewDeduplicator(cfg.DedupWindow)
		guards = append(guards, middleware.Deduplication(dedup))
		stop = dedup.Stop
	}

	healthHandler := health.NewHandler(cfg.App.Version, svc.Checks, health.WithStats(svc.Stats))
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	recipes := recipeHandler.NewHandler(svc.Generator, svc.Detector, cfg.Image.MaxFiles, cfg.Image.MaxFileBytes)
	registerRecipeRoutes(router.Group("/", guards...), recipes)

	apiGroup := router.Group("/api")
	registerRecipeRoutes(apiGroup.Group("/", guards...), recipes)

	storage := storageHandler.NewHandler(svc.Storage)
	{
		apiGroup.GET("/preferences", storage.GetPreferences)
		apiGroup.PUT("/preferences", storage.SavePreferences)
		apiGroup.DELETE("/preferences", storage.ResetPreferences)

		apiGroup.GET("/saved-recipes", storage.ListRecipes)
		apiGroup.POST("/saved-recipes", storage.SaveRecipe)
		apiGroup.DELETE("/saved-recipes/:id", storage.RemoveRecipe)

		apiGroup.GET("/storage", storage.Usage)
		apiGroup.POST("/storage/cleanup", storage.Cleanup)
		apiGroup.GET("/storage/export", storage.Export)
		apiGroup.POST("/storage/import", storage.Import)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, stop
}

func registerRecipeRoutes(g *gin.RouterGroup, h *recipeHandler.Handler) {
	g.POST("/generate-recipe", h.GenerateRecipe)
	g.POST("/generate-recipe-stream", h.GenerateRecipeStream)
	g.POST("/process-images", h.ProcessImages)
}

// corsConfig 萬用來源時不允許攜帶憑證
func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
			break
		}
	}

	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Request-ID", storageHandler.ClientIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           12 * time.Hour,
	}
	if wildcard {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
