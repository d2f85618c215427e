// Local development runner: loads a .env file and feeds the webhook handler
// from a getUpdates long-polling loop instead of a public HTTPS endpoint.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"moviedex-tg-bot/api"
	"moviedex-tg-bot/internal/config"
	"moviedex-tg-bot/internal/logging"
)

func main() {
	_ = loadDotEnv(".env")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	logger, err := logging.New(true)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	bot, cleanup, err := api.NewFromConfig(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer cleanup()

	poll(bot, cfg.BotToken, logger)
}

func poll(bot *api.Bot, token string, logger *zap.Logger) {
	base := fmt.Sprintf("https://api.telegram.org/bot%s", token)
	deleteWebhook(base, logger)

	allowed := url.QueryEscape(`["message","channel_post","callback_query"]`)
	offset := 0
	client := &http.Client{Timeout: 45 * time.Second}

	logger.Info("polling started")
	for {
		u := fmt.Sprintf("%s/getUpdates?timeout=30&allowed_updates=%s&offset=%d", base, allowed, offset)
		resp, err := client.Get(u)
		if err != nil {
			logger.Warn("polling error", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			logger.Warn("polling status", zap.Int("status", resp.StatusCode), zap.ByteString("body", b))
			time.Sleep(2 * time.Second)
			continue
		}

		var out struct {
			OK     bool              `json:"ok"`
			Result []json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(b, &out); err != nil {
			logger.Warn("polling decode error", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		for _, raw := range out.Result {
			var upd struct {
				UpdateID int `json:"update_id"`
			}
			_ = json.Unmarshal(raw, &upd)
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}

			r := httptest.NewRequest(http.MethodPost, "http://localhost/api/webhook", bytes.NewReader(raw))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			bot.Webhook(w, r)
			if w.Code != http.StatusOK {
				logger.Warn("handler status", zap.Int("status", w.Code), zap.Int("update_id", upd.UpdateID))
			}
		}
	}
}

func deleteWebhook(base string, logger *zap.Logger) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(base + "/deleteWebhook?drop_pending_updates=true")
	if err != nil {
		logger.Warn("deleteWebhook error", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	logger.Info("deleteWebhook", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(body))))
}

func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(k), "export "))
		v = strings.Trim(strings.TrimSpace(v), "\"'")
		if k == "" || os.Getenv(k) != "" {
			continue
		}
		_ = os.Setenv(k, v)
	}
	return scanner.Err()
}
