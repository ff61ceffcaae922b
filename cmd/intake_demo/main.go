// README: Terminal chat against the intake service with an in-memory store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tripdesk/internal/ai"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/service"
)

func main() {
	ctx := context.Background()

	var chain ai.Chain
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gemini, err := ai.NewGeminiResponder(ctx, key, os.Getenv("TRIPDESK_GEMINI_MODEL"))
		if err != nil {
			log.Fatalf("Failed to initialize Gemini: %v", err)
		}
		defer gemini.Close()
		chain = append(chain, gemini)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		chain = append(chain, ai.NewOpenAIResponder(key, os.Getenv("TRIPDESK_OPENAI_MODEL")))
	}
	if len(chain) == 0 {
		log.Fatal("set GEMINI_API_KEY or OPENAI_API_KEY")
	}

	store := conversation.NewMemoryStore()
	svc := service.NewIntakeService(service.Deps{Store: store, Responder: chain})

	const user = "demo"
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Usuario: ")
	for scanner.Scan() {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			fmt.Print("Usuario: ")
			continue
		}
		turnCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		reply := svc.HandleMessage(turnCtx, user, msg)
		cancel()
		fmt.Printf("Bot: %s\n", reply)

		if rec, err := svc.Conversation(ctx, user); err == nil {
			for _, f := range rec.State.Fields() {
				fmt.Printf("  [%s] %s\n", f.Slot, f.Value)
			}
			if missing := rec.State.MissingRequiredSlots(); len(missing) > 0 {
				fmt.Printf("  faltan: %v\n", missing)
			}
		}
		fmt.Print("Usuario: ")
	}
}
