package main

import (
	"log"

	"github.com/SarAA2003/QuickAi/app"
	"github.com/SarAA2003/QuickAi/app/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app.MustInitDB()
	app.MustInitClients()
	app.InitStripe()

	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:" + cfg.Server.Port)
}
