package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/chat-relay/internal/chat"
	"github.com/RichardoC/chat-relay/internal/config"
	"github.com/RichardoC/chat-relay/internal/db"
	"github.com/RichardoC/chat-relay/internal/llm"
	"github.com/RichardoC/chat-relay/internal/models"
	"github.com/RichardoC/chat-relay/internal/session"
)

func main() {
	sessionID := flag.String("session", models.DefaultSessionID, "session id to chat in")
	persist := flag.Bool("persist", false, "store the conversation in the configured database")
	flag.Parse()

	logger, _ := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	llmService, err := llm.New(cfg.LLMBaseURL, cfg.LLMToken, cfg.LLMModel, cfg.LLMOptions()...)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	var store chat.Store
	if *persist {
		database, err := db.New(cfg.DBPath)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err), zap.String("dbPath", cfg.DBPath))
		}
		defer database.Close()
		store = database
	}

	orchestrator := chat.New(session.NewRegistry(cfg.MaxLogSize), llmService, store,
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithLogger(logger))

	ctx := context.Background()
	fmt.Println("Type a message. /clear resets the conversation, /history prints it, /quit exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/clear":
			if err := orchestrator.HandleClear(ctx, *sessionID); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			continue
		case "/history":
			history, err := orchestrator.HandleHistory(ctx, *sessionID)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			for _, m := range history {
				fmt.Printf("%s: %s\n", m.Role, m.Content)
			}
			continue
		}

		reply, err := orchestrator.HandleTurn(ctx, *sessionID, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println(reply)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("failed to read input", zap.Error(err))
	}
}
