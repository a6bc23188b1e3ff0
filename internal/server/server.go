package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"anoa.com/librarydesk/internal/access"
	"anoa.com/librarydesk/internal/config"
	"anoa.com/librarydesk/internal/middleware"
	"anoa.com/librarydesk/internal/scheduler"
	"anoa.com/librarydesk/pkg/ratelimit"
	"anoa.com/librarydesk/pkg/storage"

	adminHttp "anoa.com/librarydesk/internal/modules/admin/delivery/http"
	adminService "anoa.com/librarydesk/internal/modules/admin/service"

	catalogHttp "anoa.com/librarydesk/internal/modules/catalog/delivery/http"
	catalogRepo "anoa.com/librarydesk/internal/modules/catalog/repository"
	catalogService "anoa.com/librarydesk/internal/modules/catalog/service"

	loanHttp "anoa.com/librarydesk/internal/modules/loan/delivery/http"
	loanRepo "anoa.com/librarydesk/internal/modules/loan/repository"
	loanService "anoa.com/librarydesk/internal/modules/loan/service"

	statHttp "anoa.com/librarydesk/internal/modules/stat/delivery/http"
	statService "anoa.com/librarydesk/internal/modules/stat/service"

	userHttp "anoa.com/librarydesk/internal/modules/user/delivery/http"
	userRepo "anoa.com/librarydesk/internal/modules/user/repository"
	userService "anoa.com/librarydesk/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
	cfg         *config.Config
}

// NewServer wires repositories, services and handlers. redisClient may be
// nil, in which case the borrow cooldown, stats cache and live book feed are
// disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := userRepo.NewUserRepository(db)
	bookRepo := catalogRepo.NewBookRepository(db)
	authorRepo := catalogRepo.NewAuthorRepository(db)
	categoryRepo := catalogRepo.NewCategoryRepository(db)
	loanRepo := loanRepo.NewLoanRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage(storage.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	})
	if errors.Is(err, storage.ErrNotConfigured) {
		slog.Warn("cloudinary not configured, cover uploads disabled")
		imageStorage = nil
	} else if err != nil {
		return nil, err
	}

	authSvc := userService.NewAuthService(userRepo, userService.Options{
		JWTSecret:             cfg.JWTSecret,
		TokenTTL:              cfg.JWTTTL,
		AdminRegistrationCode: cfg.AdminRegistrationCode,
	})
	authHandler := userHttp.NewAuthHandler(authSvc)

	bookSvc := catalogService.NewBookService(bookRepo, categoryRepo, imageStorage)
	authorSvc := catalogService.NewAuthorService(authorRepo, bookRepo)
	categorySvc := catalogService.NewCategoryService(categoryRepo)
	catalogHandler := catalogHttp.NewCatalogHandler(bookSvc, authorSvc, categorySvc)

	loanSvc := loanService.NewLoanService(loanRepo, loanService.NewRedisPublisher(redisClient), loanService.Options{
		LoanPeriod: cfg.LoanPeriod,
	})
	loanHandler := loanHttp.NewLoanHandler(loanSvc, redisClient, cfg.RateLimitBorrow, cfg.AllowedOrigins)

	adminSvc := adminService.NewAdminService(userRepo, loanRepo, authSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	statSvc := statService.NewStatService(userRepo, loanRepo, redisClient, cfg.StatsCacheTTL)
	statHandler := statHttp.NewStatHandler(statSvc)

	sched := scheduler.NewScheduler()
	if err := sched.Register(loanService.NewAuditJob(loanSvc, cfg.AuditCron)); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/api/books/events/ws"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimitByIP(ratelimit.NewKeyed(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/register/admin", authHandler.RegisterAdmin)
		auth.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/dashboard", statHandler.Dashboard)

		protected.GET("/books", catalogHandler.ListBooks)
		protected.GET("/books/search", catalogHandler.SearchBooks)
		protected.GET("/books/events/ws", loanHandler.BookEvents)
		protected.GET("/books/:id", catalogHandler.GetBook)
		protected.POST("/books/:id/borrow", loanHandler.Borrow)

		protected.GET("/authors", catalogHandler.ListAuthors)
		protected.GET("/authors/:id", catalogHandler.GetAuthor)
		protected.GET("/categories", catalogHandler.GetAllCategories)

		protected.GET("/loans", loanHandler.ListMyLoans)
		protected.POST("/loans/:id/return", loanHandler.Return)

		adminGroup := protected.Group("/admin")
		{
			catalogAdmin := adminGroup.Group("")
			catalogAdmin.Use(authMiddleware.RequireCapability(access.ManageCatalog))
			catalogAdmin.POST("/books", catalogHandler.CreateBook)
			catalogAdmin.PUT("/books/:id", catalogHandler.UpdateBook)
			catalogAdmin.DELETE("/books/:id", catalogHandler.DeleteBook)
			catalogAdmin.POST("/books/:id/cover", catalogHandler.UploadCover)
			catalogAdmin.POST("/books/:id/categories", catalogHandler.LinkCategory)
			catalogAdmin.DELETE("/books/:id/categories/:category_id", catalogHandler.UnlinkCategory)
			catalogAdmin.POST("/authors", catalogHandler.CreateAuthor)
			catalogAdmin.POST("/categories", catalogHandler.CreateCategory)
			catalogAdmin.DELETE("/categories/:id", catalogHandler.DeleteCategory)

			viewAdmin := adminGroup.Group("")
			viewAdmin.Use(authMiddleware.RequireCapability(access.ViewAdminCatalog))
			viewAdmin.GET("/books", catalogHandler.AdminListBooks)
			viewAdmin.GET("/loans", loanHandler.ListAllLoans)
			viewAdmin.POST("/audit", loanHandler.Audit)

			userAdmin := adminGroup.Group("/users")
			userAdmin.Use(authMiddleware.RequireCapability(access.ManageUsers))
			userAdmin.GET("", adminHandler.GetAllUsers)
			userAdmin.POST("", adminHandler.CreateUser)
			userAdmin.PATCH("/:id", adminHandler.UpdateUser)
			userAdmin.DELETE("/:id", adminHandler.DeleteUser)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   sched,
		cfg:         cfg,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP and the background scheduler until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()
	defer s.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
