package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/worldplex-live/worldplex_api/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},
		&services.JWTService{},
		&services.AuthMiddleware{},
		&services.MonitoringService{},
		&services.EventService{},
		&services.MinIOService{},

		&services.PresenceService{},
		&services.QuestService{},
		&services.SeatService{},
		&services.ChatService{},
		&services.AuthService{},
		&services.WorldService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
