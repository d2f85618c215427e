package api

import (
	"fmt"
	"html"
	"strings"

	"moviedex-tg-bot/internal/search"
	"moviedex-tg-bot/internal/storage"
	"moviedex-tg-bot/internal/tg"
)

// Rendering rule for absent fields: they are omitted. A record with no
// extracted title falls back to the first line of its raw caption.

// RenderPage formats one result page as HTML message text.
func RenderPage(p *search.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Results for:</b> <code>%s</code>\n", html.EscapeString(p.Query))
	fmt.Fprintf(&b, "Page %d/%d — Total: %d\n\n", p.PageNumber, p.TotalPages, p.TotalResults)

	for i, rec := range p.Items {
		fmt.Fprintf(&b, "%d. <b>%s</b>\n", p.Offset+i+1, html.EscapeString(recordLine(rec)))
		if rec.Link != "" {
			fmt.Fprintf(&b, "<b>Link:</b> %s\n", rec.Link)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func recordLine(rec storage.MovieRecord) string {
	parts := make([]string, 0, 8)
	title := rec.Title
	if title == "" {
		title = firstLine(rec.Caption)
	}
	if title != "" {
		parts = append(parts, title)
	}
	if rec.Year > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", rec.Year))
	}
	if rec.Quality != "" {
		parts = append(parts, rec.Quality)
	}
	if rec.Codec != "" {
		parts = append(parts, rec.Codec)
	}
	if rec.SourceTag != "" {
		parts = append(parts, rec.SourceTag)
	}
	if len(rec.Languages) > 0 {
		parts = append(parts, strings.Join(rec.Languages, "/"))
	}
	if rec.Season > 0 {
		parts = append(parts, fmt.Sprintf("S%02d", rec.Season))
	}
	if s := rec.Episode.String(); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

const (
	callbackPage  = "page"
	callbackClose = "close"
)

func pageCallback(sessionKey string, page int) string {
	return fmt.Sprintf("%s|%s|%d", callbackPage, sessionKey, page)
}

// PageKeyboard builds the Prev/Next navigation for a page, plus a close
// button. Navigation rows only appear when there is somewhere to go.
func PageKeyboard(p *search.Page) *tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, 2)
	nav := make([]tg.InlineKeyboardButton, 0, 2)
	if p.PageNumber > 1 {
		nav = append(nav, tg.InlineKeyboardButton{Text: "« Prev", CallbackData: pageCallback(p.SessionKey, p.PageNumber-1)})
	}
	if p.PageNumber < p.TotalPages {
		nav = append(nav, tg.InlineKeyboardButton{Text: "Next »", CallbackData: pageCallback(p.SessionKey, p.PageNumber+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []tg.InlineKeyboardButton{{Text: "Close", CallbackData: callbackClose}})
	kb := tg.NewInlineKeyboardMarkup(rows)
	return &kb
}
