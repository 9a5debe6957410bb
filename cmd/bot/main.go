package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/inu9431/qna-archiver/pkg/utils"
)

// Start the Discord bot
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	bot, err := NewBot(cfg)
	if err != nil {
		log.Fatalf("[BOT]: Failed to create bot: %v", err)
	}

	if err := bot.Start(); err != nil {
		log.Fatalf("[BOT]: Failed to start bot: %v", err)
	}
	defer bot.Stop()

	log.Println("[BOT]: Bot is running. Press Ctrl+C to exit.")

	// Wait for a termination signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
