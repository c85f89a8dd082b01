package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/lumichat/lumichat/internal/pkg/chatclient"
	"github.com/lumichat/lumichat/internal/pkg/database"
	"github.com/lumichat/lumichat/internal/pkg/entitlements"
	"github.com/lumichat/lumichat/internal/pkg/env"
	"github.com/lumichat/lumichat/internal/pkg/metrics/counter"
	"github.com/lumichat/lumichat/internal/pkg/middleware"
)

type chatRequest struct {
	Prompt        string `json:"prompt"`
	SystemMessage string `json:"systemMessage"`
	Model         string `json:"model"`
}

// HandleChatProcess authorizes the request against the user's entitlements
// for the model's tier, then streams completion chunks as JSON lines.
func HandleChatProcess(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return respondFail(c, fiber.StatusBadRequest, "prompt is required")
	}
	if req.Model == "" {
		req.Model = env.GetEnv("OPENAI_API_MODEL", "gpt-3.5-turbo")
	}

	userID := middleware.UserID(c)
	tier := entitlements.TierForModel(req.Model)
	gate := entitlements.NewGate(entitlements.NewStore(database.GetDB()))
	if err := gate.Authorize(c.Context(), userID, tier); err != nil {
		var qe *entitlements.QuotaExhaustedError
		if errors.As(err, &qe) {
			return respondFail(c, fiber.StatusPaymentRequired, fmt.Sprintf("quota exhausted for tier %s", qe.Tier))
		}
		return respondFail(c, fiber.StatusInternalServerError, "quota check failed")
	}

	messages := []chatclient.Message{}
	if req.SystemMessage != "" {
		messages = append(messages, chatclient.Message{Role: "system", Content: req.SystemMessage})
	}
	messages = append(messages, chatclient.Message{Role: "user", Content: req.Prompt})

	client := chatclient.NewFromEnv()
	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		first := true
		err := client.Stream(context.Background(), chatclient.Request{
			Model:    req.Model,
			Messages: messages,
		}, func(chunk []byte) error {
			if !first {
				if _, err := w.WriteString("\n"); err != nil {
					return err
				}
			}
			first = false
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			log.Printf("chat stream aborted: %v", err)
			msg, _ := json.Marshal(fiber.Map{"status": statusFail, "message": "upstream error"})
			if first {
				_, _ = w.Write(msg)
			} else {
				_, _ = w.WriteString("\n" + string(msg))
			}
			_ = w.Flush()
			return
		}
		if err := counter.AddChatMessage(userID); err != nil {
			log.Printf("failed to count chat message for user %d: %v", userID, err)
		}
	})
	return nil
}
