package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/disciplineos/disciplineos/config"
	"github.com/disciplineos/disciplineos/models"
	"github.com/disciplineos/disciplineos/routes"
	"github.com/disciplineos/disciplineos/utils"
)

func main() {
	// .env is a local convenience; production injects real env vars
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.UserSubscription{}, &models.StreakRecord{}, &models.PageView{})

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
