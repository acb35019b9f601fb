package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ping-me/internal/config"
	"ping-me/internal/db"
	grpcclient "ping-me/internal/grpc"
	"ping-me/internal/handlers"
	"ping-me/internal/logger"
	"ping-me/internal/media"
	"ping-me/internal/middleware"
	"ping-me/internal/models"
	"ping-me/internal/observability"
	"ping-me/internal/presence"
	"ping-me/internal/rabbitmq"
	"ping-me/internal/repositories"
	"ping-me/internal/service"
	"ping-me/internal/telemetry"
	"ping-me/internal/ws"
)

func main() {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	appLog := logger.New(cfg.LogLevel)
	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer(ctx)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouteKey, cfg.ServiceName, cfg.Environment)

	users, groups, messages := buildRepositories(cfg)

	var validator middleware.TokenValidator = grpcclient.DevValidator{}
	if !cfg.DevAuth {
		authConn, err := grpcclient.Dial(cfg.AuthGRPCAddr)
		if err != nil {
			log.Fatalf("failed to connect to auth grpc: %v", err)
		}
		defer authConn.Close()
		validator = grpcclient.NewAuthClient(authConn)
	} else {
		appLog.Warnf("dev_auth enabled: tokens of the form dev-<user id> are trusted")
	}

	var mirror ws.PresenceMirror
	if cfg.PresenceRedis != "" {
		redisMirror, err := presence.NewRedisMirror(ctx, cfg.PresenceRedis, cfg.PresenceKey)
		if err != nil {
			appLog.Warnf("presence mirror disabled: %v", err)
		} else {
			defer redisMirror.Close()
			mirror = redisMirror
		}
	}

	registry := ws.NewRegistry()
	dispatcher := ws.NewDispatcher(registry, appLog)
	uploader := media.New(cfg.MediaUploadURL, cfg.MediaPreset)

	resolver := service.NewResolver(groups, users)
	groupService := service.NewGroupService(groups, users, uploader, dispatcher, appLog)
	messageService := service.NewMessageService(resolver, groups, messages, uploader, dispatcher, appLog)
	userService := service.NewUserService(users, registry)

	live := ws.NewLiveHandler(registry, dispatcher, validator, mirror, appLog, ws.ClientOptions{
		SendBuffer:   cfg.WSSendBuffer,
		WriteTimeout: cfg.WSWriteTimeout,
		PongTimeout:  cfg.WSPongTimeout,
	})

	router := gin.Default()

	// middlewares
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", live.Handle)
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)
	handlers.Register(router,
		middleware.AuthMiddleware(validator),
		handlers.NewUserHandler(userService),
		handlers.NewGroupHandler(groupService, audit),
		handlers.NewMessageHandler(messageService, audit),
	)

	appLog.Infof("ping-me listening on %s", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildRepositories(cfg config.Config) (repositories.UserRepository, repositories.GroupRepository, repositories.MessageRepository) {
	if cfg.DBDSN == "" {
		seed := make([]models.User, 0, len(cfg.DevUsers))
		for _, id := range cfg.DevUsers {
			seed = append(seed, models.User{ID: id, FullName: id})
		}
		log.Printf("no db_dsn configured, using in-memory storage with %d users", len(seed))
		return repositories.NewMemoryUserRepo(seed...), repositories.NewMemoryGroupRepo(), repositories.NewMemoryMessageRepo()
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	return repositories.NewUserRepo(database), repositories.NewGroupRepo(database), repositories.NewMessageRepo(database)
}
