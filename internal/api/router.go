package api

import (
	"fmt"
	"time"

	"nutritrack/internal/api/handlers"
	"nutritrack/internal/api/handlers/health"
	recipeHandler "nutritrack/internal/api/handlers/recipe"
	"nutritrack/internal/api/middleware"
	"nutritrack/internal/core/catalog"
	"nutritrack/internal/core/consumption"
	"nutritrack/internal/core/recipe"
	"nutritrack/internal/infrastructure/config"
	"nutritrack/internal/pkg/common"
	"nutritrack/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// 預設請求超時
	defaultTimeout = 30 * time.Second
	// 預設請求體大小限制 (1MB)
	defaultMaxBodySize = 1 << 20
)

// Services 路由依賴的服務
type Services struct {
	Store       storage.Store
	Cache       *storage.CatalogCache
	Catalog     *catalog.Service
	Search      *recipe.SearchService
	Consumption *consumption.Service
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) (*gin.Engine, *middleware.Deduplicator, error) {
	if svc.Store == nil || svc.Catalog == nil || svc.Search == nil || svc.Consumption == nil {
		return nil, nil, fmt.Errorf("router requires store, catalog, search and consumption services")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("storage", svc.Store.Name()),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Recovery())
	router.Use(middleware.Identity())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.HeaderUserID},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制、限流與超時
	router.Use(middleware.BodySizeLimit(maxBody))
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(middleware.Timeout(timeout))

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, svc.Store, svc.Cache)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	consumptionHandler := handlers.NewConsumptionHandler(svc.Consumption)
	searchHandler := recipeHandler.NewHandler(svc.Search)

	// API 路由組
	api := router.Group("/api/v1")
	{
		api.POST("/recipes/search", searchHandler.HandleSearch)

		foods := api.Group("/foods")
		{
			foods.GET("", catalogHandler.ListFoods)
			foods.GET("/:id", catalogHandler.GetFood)
			foods.POST("/:id/nutrition", catalogHandler.Nutrition)
		}

		ingredients := api.Group("/ingredients")
		{
			ingredients.GET("/resolve", catalogHandler.Resolve)
			ingredients.GET("/normalize", catalogHandler.Normalize)
			ingredients.POST("/mappings", dedup.Middleware(), catalogHandler.SaveMapping)
		}

		// 以下路由需要使用者識別
		user := api.Group("", middleware.RequireUser())
		{
			user.POST("/consumption", dedup.Middleware(), consumptionHandler.Record)
			user.GET("/consumption", consumptionHandler.History)

			user.GET("/stats", consumptionHandler.Stats)
			user.GET("/stats/range", consumptionHandler.Range)
			user.GET("/stats/:period/:label", consumptionHandler.PeriodStats)
			user.POST("/stats/rebuild", consumptionHandler.Rebuild)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, common.ErrNotFound)
	})

	common.LogInfo("Router setup completed successfully",
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBody),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
	)

	return router, dedup, nil
}
