package main

import (
	"os"

	"strikebot/internal/bot"
	"strikebot/internal/config"
	"strikebot/internal/ledger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Environment: token and config file location
	environment, err := config.ParseEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Missing or invalid environment, set STRIKEBOT_TOKEN")
	}

	// Configuration file
	cfg, err := config.Load(environment.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Create the ledger on top of the strike store
	categories := make([]ledger.Category, 0, len(cfg.Categories))
	for _, category := range cfg.Categories {
		categories = append(categories, ledger.Category(category.Tag))
	}
	database := ledger.NewDatabase(cfg.Storage.Path)
	strikes := ledger.NewLedger(database, cfg.ExpiryWindow(), cfg.Ledger.ReviewThreshold, categories, ledger.SystemClock)

	// Create bot
	strikebot, err := bot.NewBot(environment.Token, cfg, strikes)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create discord bot")
	}

	// Run bot
	if err := strikebot.Run(); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped with an error")
	}
}
