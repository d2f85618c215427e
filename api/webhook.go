package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"moviedex-tg-bot/internal/indexer"
	"moviedex-tg-bot/internal/search"
	"moviedex-tg-bot/internal/tg"
)

type update struct {
	UpdateID      int            `json:"update_id"`
	Message       *message       `json:"message"`
	ChannelPost   *message       `json:"channel_post"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type user struct {
	ID int64 `json:"id"`
}

type chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type mediaFile struct {
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
}

type message struct {
	MessageID       int        `json:"message_id"`
	Chat            chat       `json:"chat"`
	From            *user      `json:"from"`
	Text            string     `json:"text"`
	Caption         string     `json:"caption"`
	Video           *mediaFile `json:"video"`
	Document        *mediaFile `json:"document"`
	ReplyToMessage  *message   `json:"reply_to_message"`
	ForwardFromChat *chat      `json:"forward_from_chat"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    user     `json:"from"`
	Data    string   `json:"data"`
	Message *message `json:"message"`
}

// Webhook is the single inbound HTTP surface: one Telegram update per POST.
// It always answers 200 so Telegram does not redeliver updates we chose to
// ignore.
func (b *Bot) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var upd update
	if err := json.Unmarshal(body, &upd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 9*time.Second)
	defer cancel()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.ChannelPost != nil:
		b.handleChannelPost(ctx, upd.ChannelPost)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
	w.WriteHeader(http.StatusOK)
}

func isGroup(c chat) bool {
	return c.Type == "group" || c.Type == "supergroup"
}

func (b *Bot) handleMessage(ctx context.Context, msg *message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		b.handleCommand(ctx, msg)
		return
	}
	if !isGroup(msg.Chat) {
		return
	}

	page, err := b.pipeline.Search(ctx, msg.Chat.ID, msg.Text, msg.From.ID)
	switch {
	case errors.Is(err, search.ErrNotASearch):
		return
	case errors.Is(err, search.ErrStoreUnavailable):
		b.log.Warn("search store unavailable", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
		b.reply(ctx, msg, "Search is temporarily unavailable, try again in a moment.")
		return
	case err != nil:
		b.log.Error("search failed", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
		return
	}
	if page.TotalResults == 0 {
		b.reply(ctx, msg, "No results found.")
		return
	}

	sentID, err := b.tg.SendMessage(ctx, tg.SendMessageRequest{
		ChatID:                msg.Chat.ID,
		Text:                  RenderPage(page),
		ParseMode:             "HTML",
		ReplyMarkup:           PageKeyboard(page),
		ReplyToMessageID:      msg.MessageID,
		DisableWebPagePreview: true,
	})
	if err != nil {
		b.log.Warn("send results failed", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
		return
	}
	b.pipeline.BindMessage(ctx, page.SessionKey, sentID)
}

func (b *Bot) handleCommand(ctx context.Context, msg *message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/start":
		b.reply(ctx, msg, "Hi! Add me to a group, link a source channel with /link, and I will index its posts and answer movie searches.")
	case "/stats":
		count, err := b.store.CountScope(ctx, msg.Chat.ID)
		if err != nil {
			b.reply(ctx, msg, "Could not fetch stats.")
			return
		}
		b.reply(ctx, msg, fmt.Sprintf("Indexed records for this chat: %d", count))
	case "/link":
		b.handleLink(ctx, msg)
	case "/unlink":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		removed, err := b.store.RemoveLink(ctx, msg.Chat.ID)
		if err != nil {
			b.reply(ctx, msg, "Could not remove the link.")
			return
		}
		b.reply(ctx, msg, fmt.Sprintf("Removed %d channel link(s).", removed))
	case "/reindex":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		cacheKeys, storeRows, err := b.pipeline.ClearScope(ctx, msg.Chat.ID)
		if err != nil {
			b.reply(ctx, msg, "Could not clear this chat's index.")
			return
		}
		b.reply(ctx, msg, fmt.Sprintf(
			"Cleared %d records and %d cached searches. New posts in the linked channel will be indexed fresh.",
			storeRows, cacheKeys))
	}
}

// handleLink binds a source channel to the group: reply /link to a message
// forwarded from that channel.
func (b *Bot) handleLink(ctx context.Context, msg *message) {
	if !isGroup(msg.Chat) {
		return
	}
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.ForwardFromChat == nil ||
		msg.ReplyToMessage.ForwardFromChat.Type != "channel" {
		b.reply(ctx, msg, "Reply /link to a message forwarded from the channel you want to index.")
		return
	}
	source := msg.ReplyToMessage.ForwardFromChat
	if err := b.store.AddLink(ctx, source.ID, msg.Chat.ID, msg.From.ID); err != nil {
		b.log.Warn("add link failed", zap.Int64("source", source.ID), zap.Error(err))
		b.reply(ctx, msg, "Could not save the link, try again.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Linked channel %q. New posts there will be indexed for this chat.", source.Title))
}

func (b *Bot) requireAdmin(ctx context.Context, msg *message) bool {
	member, err := b.tg.GetChatMember(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil || !member.IsAdmin() {
		b.reply(ctx, msg, "Only chat admins can do that.")
		return false
	}
	return true
}

// handleChannelPost auto-indexes new media posts from linked source
// channels into every scope bound to them.
func (b *Bot) handleChannelPost(ctx context.Context, post *message) {
	item := indexer.Item{Caption: post.Caption, Link: permalink(post)}
	switch {
	case post.Video != nil:
		item.MediaID = post.Video.FileUniqueID
		if item.Caption == "" {
			item.Caption = post.Video.FileName
		}
	case post.Document != nil:
		item.MediaID = post.Document.FileUniqueID
		if item.Caption == "" {
			item.Caption = post.Document.FileName
		}
	default:
		return
	}
	if item.Caption == "" {
		return
	}

	targets, err := b.store.TargetsForSource(ctx, post.Chat.ID)
	if err != nil {
		b.log.Warn("target lookup failed", zap.Int64("source", post.Chat.ID), zap.Error(err))
		return
	}
	for _, target := range targets {
		rep, err := b.indexer.Index(ctx, target, []indexer.Item{item}, nil)
		if err != nil {
			b.log.Warn("auto-index aborted", zap.Int64("target", target), zap.Error(err))
			continue
		}
		b.log.Info("auto-indexed post",
			zap.Int64("source", post.Chat.ID), zap.Int64("target", target),
			zap.Int("indexed", rep.Indexed), zap.Int("duplicates", rep.Duplicates))
	}
}

// permalink rebuilds the t.me link for a channel message.
func permalink(post *message) string {
	if post.Chat.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", post.Chat.Username, post.MessageID)
	}
	id := strconv.FormatInt(post.Chat.ID, 10)
	id = strings.TrimPrefix(id, "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, post.MessageID)
}

func (b *Bot) handleCallback(ctx context.Context, q *callbackQuery) {
	if q.Message == nil {
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "", false)
		return
	}
	if q.Data == callbackClose {
		_ = b.tg.DeleteMessage(ctx, q.Message.Chat.ID, q.Message.MessageID)
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "", false)
		return
	}

	parts := strings.Split(q.Data, "|")
	if len(parts) != 3 || parts[0] != callbackPage {
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "Invalid button.", true)
		return
	}
	pageNum, err := strconv.Atoi(parts[2])
	if err != nil {
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "Invalid button.", true)
		return
	}

	page, err := b.pipeline.Paginate(ctx, parts[1], pageNum, q.From.ID)
	switch {
	case errors.Is(err, search.ErrSessionExpired):
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "This search expired, please search again.", true)
		return
	case errors.Is(err, search.ErrNotAuthorized):
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "Only the original requester can use these buttons.", true)
		return
	case errors.Is(err, search.ErrPageOutOfRange):
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "Invalid page.", true)
		return
	case err != nil:
		b.log.Warn("paginate failed", zap.String("key", parts[1]), zap.Error(err))
		_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "Something went wrong, try again.", true)
		return
	}

	if err := b.tg.EditMessageText(ctx, tg.EditMessageTextRequest{
		ChatID:                q.Message.Chat.ID,
		MessageID:             q.Message.MessageID,
		Text:                  RenderPage(page),
		ParseMode:             "HTML",
		ReplyMarkup:           PageKeyboard(page),
		DisableWebPagePreview: true,
	}); err != nil {
		b.log.Warn("edit results failed", zap.Int64("chat", q.Message.Chat.ID), zap.Error(err))
	}
	_ = b.tg.AnswerCallbackQuery(ctx, q.ID, "", false)
}

func (b *Bot) reply(ctx context.Context, msg *message, text string) {
	_, err := b.tg.SendMessage(ctx, tg.SendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		b.log.Warn("reply failed", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
	}
}
