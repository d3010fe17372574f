package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutritrack/internal/api"
	"nutritrack/internal/core/catalog"
	"nutritrack/internal/core/consumption"
	"nutritrack/internal/core/recipe"
	"nutritrack/internal/core/stats"
	"nutritrack/internal/infrastructure/config"
	"nutritrack/internal/pkg/common"
	"nutritrack/internal/storage"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（內含 .env）
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

	common.LogInfo("載入設定",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("mirror_local", cfg.Storage.MirrorLocal),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("supabase_key", config.MaskSecret(cfg.Storage.Supabase.APIKey)),
	)

	// 初始化儲存
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.NewStore(initCtx, cfg.Storage)
	cancelInit()
	if err != nil {
		common.LogFatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			common.LogWarn("Failed to close storage", zap.Error(err))
		}
	}()

	// 初始化快取（停用時為 nil）
	catalogCache := storage.NewCatalogCache(cfg.CatalogCache)
	defer catalogCache.Close()

	catalogRepo := storage.NewCatalogRepository(store, catalogCache)
	recipeRepo := storage.NewRecipeRepository(store, catalogCache)

	services := api.Services{
		Store:   store,
		Cache:   catalogCache,
		Catalog: catalog.NewService(catalogRepo),
		Search: recipe.NewSearchService(recipeRepo,
			recipe.WithSuggestionThreshold(cfg.Search.SuggestionThreshold),
			recipe.WithMaxSuggestions(cfg.Search.MaxSuggestions),
		),
		Consumption: consumption.NewService(
			catalogRepo,
			storage.NewConsumptionRepository(store),
			storage.NewStatsRepository(store),
			consumption.WithLocks(stats.NewUserLocks()),
		),
	}

	// 設置路由
	router, dedup, err := api.SetupRouter(cfg, services)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}
	defer dedup.Close()

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		return
	}

	common.LogInfo("Server exited")
}
