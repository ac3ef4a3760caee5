package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quant_bench_go/internal/config"
	"quant_bench_go/internal/handler"
	"quant_bench_go/internal/middleware"
	"quant_bench_go/internal/repository"
	"quant_bench_go/internal/service"
	"quant_bench_go/pkg/database"
	"quant_bench_go/pkg/log"
	"quant_bench_go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	config.Init("configs/config.yaml")
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	log.Info("Server started")

	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.RunMigrate(); err != nil {
		log.Fatal("Failed to run migrations", err)
		return
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	esClient := database.InitElasticsearch(cfg.Search.Addresses, cfg.Search.Username, cfg.Search.Password)

	jwtManager := token.NewJWTManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshTokenExpireDays)*24*time.Hour,
	)

	// Repository 层
	userRepo := repository.NewUserRepository(database.DB)
	categoryRepo := repository.NewCategoryRepository(database.DB)
	submissionRepo := repository.NewSubmissionRepository(database.DB)
	refRepo := repository.NewSubmissionCategoryRefRepository(database.DB)
	resultRepo := repository.NewResultRepository(database.DB)
	tagRepo := repository.NewTagRepository(database.DB)
	subscriptionRepo := repository.NewSubscriptionRepository(database.DB)

	// Service 层
	tree := service.NewCategoryTree(categoryRepo)
	ledger := service.NewLivenessLedger(submissionRepo)
	aggregationService := service.NewAggregationService(tree, ledger, refRepo, resultRepo, submissionRepo, subscriptionRepo)
	searchService := service.NewSearchService(esClient, submissionRepo)
	userService := service.NewUserService(userRepo, jwtManager)
	categoryService := service.NewCategoryService(categoryRepo, submissionRepo, refRepo, resultRepo, subscriptionRepo, tree, aggregationService)
	submissionService := service.NewSubmissionService(submissionRepo, tagRepo, searchService)
	rankingService := service.NewRankingService(submissionRepo, tagRepo)
	resultService := service.NewResultService(resultRepo, submissionRepo, categoryRepo, refRepo)

	// Handler 层
	userHandler := handler.NewUserHandler(userService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, rankingService, resultService, searchService)
	feedHandler := handler.NewFeedHandler(rankingService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	authRequired := middleware.AuthMiddleware(jwtManager, userService)
	authOptional := middleware.OptionalAuthMiddleware(jwtManager, userService)

	api := r.Group("/api")

	// 用户：注册/登录匿名，个人信息/登出需要登录
	users := api.Group("/users")
	{
		users.POST("/register", userHandler.Register)
		users.POST("/login", userHandler.Login)
		users.GET("/profile", authRequired, userHandler.GetProfile)
		users.POST("/logout", authRequired, userHandler.Logout)
	}

	// 分类：读接口匿名可访问（带 token 时响应含订阅标注），写接口需要登录
	categories := api.Group("/categories")
	{
		categories.GET("", authOptional, categoryHandler.List)
		categories.GET("/tree", categoryHandler.GetTree)
		categories.GET("/:id", authOptional, categoryHandler.Get)

		categories.POST("", authRequired, categoryHandler.Create)
		categories.PUT("/:id", authRequired, categoryHandler.Update)
		categories.DELETE("/:id", authRequired, categoryHandler.Delete)
		categories.POST("/:id/subscribe", authRequired, categoryHandler.Subscribe)
		categories.POST("/:id/submissions", authRequired, categoryHandler.AddSubmissionRef)
		categories.DELETE("/:id/submissions", authRequired, categoryHandler.RemoveSubmissionRef)
	}

	// 提交：排行/详情/搜索匿名可访问，其余需要登录
	submissions := api.Group("/submissions")
	{
		submissions.GET("/trending", authOptional, submissionHandler.Rank("trending"))
		submissions.GET("/trending/tag/:name", authOptional, submissionHandler.Rank("trending"))
		submissions.GET("/latest", authOptional, submissionHandler.Rank("latest"))
		submissions.GET("/latest/tag/:name", authOptional, submissionHandler.Rank("latest"))
		submissions.GET("/popular", authOptional, submissionHandler.Rank("popular"))
		submissions.GET("/popular/tag/:name", authOptional, submissionHandler.Rank("popular"))
		submissions.GET("/search", submissionHandler.Search)
		submissions.GET("/:id", authOptional, submissionHandler.Get)
		submissions.GET("/:id/results", submissionHandler.ListResults)

		submissions.POST("", authRequired, submissionHandler.Submit)
		submissions.PUT("/:id", authRequired, submissionHandler.Update)
		submissions.DELETE("/:id", authRequired, submissionHandler.Delete)
		submissions.POST("/:id/upvote", authRequired, submissionHandler.Upvote)
		submissions.POST("/:id/tags", authRequired, submissionHandler.AddTag)
		submissions.DELETE("/:id/tags", authRequired, submissionHandler.RemoveTag)
		submissions.POST("/:id/results", authRequired, submissionHandler.SubmitResult)
	}

	api.DELETE("/results/:resultId", authRequired, submissionHandler.DeleteResult)

	// 管理员：提交审核
	admin := api.Group("/admin", authRequired, middleware.AdminAuthMiddleware())
	{
		admin.POST("/submissions/:id/approve", submissionHandler.Approve)
	}

	// 趋势榜 WebSocket 推送
	r.GET("/ws/trending", feedHandler.TrendingFeed)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
