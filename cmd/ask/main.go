// Command ask consulta la base de conocimiento desde la terminal usando el mismo flujo que el bot.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"kb-relay/internal/app"
	"kb-relay/internal/chat"
	"kb-relay/internal/config"
	"kb-relay/internal/domain"
	"kb-relay/internal/service"
)

func main() {
	userID := flag.String("user", "", "user id whose session is continued (default: random)")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	clients, err := app.NewClients(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer clients.Close()

	sessionRepo, err := clients.NewSessionRepository(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	kbClient, err := clients.NewKnowledgeClient(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	if *userID == "" {
		*userID = "cli-" + uuid.NewString()
	}
	relay := service.NewRelayService(logger,
		service.NewSessionService(sessionRepo, logger, cfg.SessionTTL),
		kbClient,
		chat.NewWriterSender(os.Stdout, "kb > "),
		service.WithFallbackMessage(cfg.FallbackMessage),
	)

	fmt.Printf("Conversando como %s (escribe 'salir' para terminar)\n", *userID)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" && !strings.EqualFold(line, "salir") {
			ev := domain.SlackMessageEvent{
				Type:        domain.EventTypeMessage,
				ChannelType: domain.ChannelTypeIM,
				User:        *userID,
				Text:        line,
				Channel:     "terminal",
			}
			if herr := relay.HandleMessage(ctx, ev); herr != nil {
				fmt.Printf("error: %v\n", herr)
			}
		}
		if err != nil || strings.EqualFold(line, "salir") {
			return
		}
	}
}
