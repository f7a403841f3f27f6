package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "github.com/GenJess/file-chat-sage/internal/app"
	"github.com/GenJess/file-chat-sage/internal/bootstrap"
	"github.com/GenJess/file-chat-sage/internal/cache"
	"github.com/GenJess/file-chat-sage/internal/platform/rabbitmq"
	"github.com/GenJess/file-chat-sage/internal/repository"
	"github.com/GenJess/file-chat-sage/internal/transport/http/handler"
	"github.com/GenJess/file-chat-sage/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	archiveRepo := repository.NewArchivedMessageRepository(app.MySQL)
	apiKeyRepo := repository.NewAPIKeyRepository(app.MySQL)
	resumeRepo := repository.NewResumeRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewTranscriptPublisher(app.MQConn, app.Config.RabbitMQ.TranscriptQueueName)

	credentialService := appsvc.NewCredentialService(app.CredentialStore)
	authService := appsvc.NewAuthService(
		userRepo,
		credentialService,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	workspaceService := appsvc.NewWorkspaceService(app.KnowledgeClient)
	// A freshly set or loaded credential resets the workspace before anything
	// else can observe it.
	credentialService.Subscribe(workspaceService.SetCredential)
	chatService := appsvc.NewChatService(
		workspaceService,
		app.KnowledgeClient,
		publisher,
		historyCache,
		archiveRepo,
		app.Logger,
	)
	apiKeyService := appsvc.NewAPIKeyService(apiKeyRepo)
	resumeService := appsvc.NewResumeService(resumeRepo, app.ObjectStore)

	authHandler := handler.NewAuthHandler(authService)
	credentialHandler := handler.NewCredentialHandler(credentialService, workspaceService)
	documentHandler := handler.NewDocumentHandler(workspaceService, chatService, credentialService)
	chatHandler := handler.NewChatHandler(chatService)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService)
	resumeHandler := handler.NewResumeHandler(resumeService, apiKeyService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	secured := v1.Group("")
	secured.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	secured.PUT("/credential", credentialHandler.Submit)
	secured.GET("/credential", credentialHandler.Status)

	secured.POST("/workspace/sync", documentHandler.Sync)
	secured.GET("/documents", documentHandler.List)
	secured.POST("/documents", documentHandler.Upload)
	secured.DELETE("/documents/:id", documentHandler.Delete)

	secured.GET("/chat/messages", chatHandler.Messages)
	secured.POST("/chat/messages", chatHandler.Send)
	secured.GET("/chat/history", chatHandler.History)

	secured.POST("/keys", apiKeyHandler.Create)
	secured.GET("/keys", apiKeyHandler.List)
	secured.DELETE("/keys/:id", apiKeyHandler.Delete)

	secured.POST("/resumes/generate", resumeHandler.Generate)
	secured.POST("/resumes/import", resumeHandler.Import)
	secured.GET("/resumes", resumeHandler.List)
	secured.GET("/resumes/:id/download", resumeHandler.Download)
	secured.DELETE("/resumes/:id", resumeHandler.Delete)

	return router
}
