package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/config"
	"recipegram_22520060/internal/database"
	"recipegram_22520060/internal/handler"
	"recipegram_22520060/internal/push"
	"recipegram_22520060/internal/queue"
	appredis "recipegram_22520060/internal/redis"
	"recipegram_22520060/internal/repository"
	"recipegram_22520060/internal/service"
	"recipegram_22520060/internal/worker"
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Privileged handle for the push notifier. nil when SERVICE_ROLE_DSN is
	// unset; push runs disabled then.
	serviceRoleDB, err := database.ConnectServiceRole(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect service role: %w", err)
	}
	if serviceRoleDB != nil {
		defer serviceRoleDB.Close()
	}

	// 3. Connect to Redis
	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	// 4. Build repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	followRepo := repository.NewFollowRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	deviceTokenRepo := repository.NewDeviceTokenRepository(db)

	// 5. Cache and queue
	feedCache := cache.NewFeedCache(redisClient.Client)
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)

	// 6. Services
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	userService := service.NewUserService(userRepo, followRepo, cfg.DefaultAvatarURL)
	recipeService := service.NewRecipeService(recipeRepo, userRepo, categoryRepo, publisher)
	categoryService := service.NewCategoryService(categoryRepo)
	favoriteService := service.NewFavoriteService(recipeRepo, db)
	followService := service.NewFollowService(followRepo, userRepo, db, publisher)
	feedService := service.NewFeedService(feedCache, recipeRepo, followRepo, userRepo)
	deviceService := service.NewDeviceService(deviceTokenRepo)

	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init media service: %w", err)
	}

	// 7. Push notifier (runs over the service-role handle)
	notifier, err := buildNotifier(cfg, serviceRoleDB)
	if err != nil {
		return fmt.Errorf("failed to init push notifier: %w", err)
	}

	// 8. Worker pool consuming the recipe stream
	workerHandler := worker.NewHandler(feedCache, followRepo, recipeRepo)
	workerHandler.SetPushNotifier(notifier)
	manager := worker.NewManager(consumer, workerHandler, worker.DefaultManagerConfig())
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// 9. HTTP layer
	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(userService, authService),
		UserHandler:     handler.NewUserHandler(userService),
		FollowHandler:   handler.NewFollowHandler(followService),
		FeedHandler:     handler.NewFeedHandler(feedService),
		RecipeHandler:   handler.NewRecipeHandler(recipeService, favoriteService),
		CategoryHandler: handler.NewCategoryHandler(categoryService),
		DeviceHandler:   handler.NewDeviceHandler(deviceService),
		MediaHandler:    handler.NewMediaHandler(mediaService),
		JWTSecret:       cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildNotifier assembles the follower push pipeline over the privileged
// store handle. When the service-role DSN or the Firebase service account is
// absent, a disabled notifier is returned and every round no-ops.
func buildNotifier(cfg *config.Config, serviceRoleDB *sqlx.DB) (*service.NotifierService, error) {
	creds := push.Credentials{
		ProjectID:   cfg.FirebaseProjectID,
		ClientEmail: cfg.FirebaseClientEmail,
		PrivateKey:  cfg.FirebasePrivateKey,
	}

	storeConfigured := serviceRoleDB != nil
	if !storeConfigured || !creds.Complete() {
		log.Println("[Notifier] Push disabled (missing service-role DSN or Firebase service account)")
		return service.NewNotifierService(nil, nil, nil, nil, creds, storeConfigured), nil
	}

	followRepo := repository.NewFollowRepository(serviceRoleDB)
	deviceTokenRepo := repository.NewDeviceTokenRepository(serviceRoleDB)

	tokenSource, err := push.NewTokenSource(creds)
	if err != nil {
		return nil, fmt.Errorf("build token source: %w", err)
	}
	sender := push.NewClient(cfg.FirebaseProjectID)

	return service.NewNotifierService(followRepo, deviceTokenRepo, tokenSource, sender, creds, true), nil
}
