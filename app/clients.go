package app

import (
	"log"

	"github.com/SarAA2003/QuickAi/app/config"
)

// MustInitClients wires the external capability clients from the environment
// and logs fatally on error.
func MustInitClients() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for clients: %v", err)
	}

	completer = newGeminiClient(cfg.Gemini)
	imageGen = newClipdropClient(cfg.Clipdrop.APIKey)

	store, err := newCloudinaryStore(cfg.Cloudinary.URL)
	if err != nil {
		log.Fatalf("cloudinary init: %v", err)
	}
	images = store
}
