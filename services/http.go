package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/worldplex-live/worldplex_api/services/handlers"
	"github.com/worldplex-live/worldplex_api/shared"
)

type HttpService struct {
	context.DefaultService

	authMiddleware *AuthMiddleware
	monitoringSvc  *MonitoringService

	authHandler  *handlers.AuthHandler
	worldHandler *handlers.WorldHandler
	seatHandler  *handlers.SeatHandler
	chatHandler  *handlers.ChatHandler
	questHandler *handlers.QuestHandler
	adminHandler *handlers.AdminHandler

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	svc.authMiddleware = ctx.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.monitoringSvc = ctx.Service(MONITORING_SVC).(*MonitoringService)

	svc.authHandler = handlers.NewAuthHandler(ctx.Service(AUTH_SVC).(*AuthService))
	svc.worldHandler = handlers.NewWorldHandler(ctx.Service(WORLD_SVC).(*WorldService))
	svc.seatHandler = handlers.NewSeatHandler(ctx.Service(SEAT_SVC).(*SeatService))
	svc.chatHandler = handlers.NewChatHandler(ctx.Service(CHAT_SVC).(*ChatService))
	svc.questHandler = handlers.NewQuestHandler(ctx.Service(QUEST_SVC).(*QuestService))
	svc.adminHandler = handlers.NewAdminHandler(
		ctx.Service(SEAT_SVC).(*SeatService),
		ctx.Service(WORLD_SVC).(*WorldService),
	)

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	app := fiber.New(fiber.Config{
		AppName:      SERVICE_NAME,
		ErrorHandler: svc.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(MonitoringMiddleware(svc.monitoringSvc))

	app.Get("/ping", svc.ping)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)
	v1.Post("/register", svc.authHandler.Register)
	v1.Post("/login", svc.authHandler.Login)

	// The unload beacon carries no auth header, it must stay open.
	v1.Post("/world/disconnect", svc.worldHandler.Disconnect)

	world := v1.Group("/world", svc.authMiddleware.RequiredAuth())
	world.Post("/enter", svc.worldHandler.EnterWorld)
	world.Post("/heartbeat", svc.worldHandler.Heartbeat)
	world.Post("/leave", svc.worldHandler.LeaveWorld)
	world.Get("/profile", svc.worldHandler.GetProfile)
	world.Get("/leaderboard", svc.worldHandler.Leaderboard)
	world.Post("/avatar", svc.worldHandler.UploadAvatar)

	world.Post("/rooms/:roomId/sit", svc.seatHandler.SitCinema)
	world.Get("/rooms/:roomId/seats", svc.seatHandler.GetSeats)
	world.Post("/stadium/sit", svc.seatHandler.SitStadium)
	world.Post("/stand", svc.seatHandler.Stand)

	world.Post("/chat", svc.chatHandler.Send)
	world.Get("/chat", svc.chatHandler.History)

	world.Post("/actions", svc.questHandler.TrackAction)
	world.Get("/quests", svc.questHandler.GetQuestLog)

	admin := v1.Group("/admin/world",
		svc.authMiddleware.RequiredAuth(),
		svc.authMiddleware.RequireRole(shared.RoleAdmin))
	admin.Post("/seats/reset", svc.adminHandler.ResetSeats)
	admin.Get("/visits", svc.adminHandler.OpenVisits)

	svc.server = app

	log.WithField("port", svc.port).Info("HTTP server started")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("Unhandled request error")
	return shared.ResponseJSON(c, http.StatusInternalServerError, "Internal Server Error", nil)
}
