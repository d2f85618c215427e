package api

import (
	"strings"
	"testing"

	"moviedex-tg-bot/internal/extract"
	"moviedex-tg-bot/internal/search"
	"moviedex-tg-bot/internal/storage"
)

func TestRenderPage(t *testing.T) {
	p := &search.Page{
		Items: []storage.MovieRecord{
			{
				Title:     "Mirage",
				Year:      2025,
				Quality:   "480p",
				SourceTag: "WEBRip",
				Languages: []string{"Hindi"},
				Link:      "https://t.me/c/100/5",
			},
			{
				Title:   "Dark",
				Season:  1,
				Episode: extract.SingleEpisode(3),
			},
		},
		TotalResults: 25,
		PageNumber:   2,
		TotalPages:   3,
		Offset:       10,
		Query:        "mirage <test>",
	}
	out := RenderPage(p)

	if !strings.Contains(out, "<code>mirage &lt;test&gt;</code>") {
		t.Errorf("query not escaped in header:\n%s", out)
	}
	if !strings.Contains(out, "Page 2/3") || !strings.Contains(out, "Total: 25") {
		t.Errorf("page header wrong:\n%s", out)
	}
	// Numbering continues from the session offset.
	if !strings.Contains(out, "11. <b>Mirage (2025) 480p WEBRip Hindi</b>") {
		t.Errorf("first item line wrong:\n%s", out)
	}
	if !strings.Contains(out, "12. <b>Dark S01 E03</b>") {
		t.Errorf("series item line wrong:\n%s", out)
	}
	if !strings.Contains(out, "<b>Link:</b> https://t.me/c/100/5") {
		t.Errorf("link line missing:\n%s", out)
	}
}

func TestRenderPageCaptionFallback(t *testing.T) {
	p := &search.Page{
		Items: []storage.MovieRecord{
			{Caption: "  raw caption first line\nsecond line ignored"},
		},
		TotalResults: 1,
		PageNumber:   1,
		TotalPages:   1,
		Query:        "raw",
	}
	out := RenderPage(p)
	if !strings.Contains(out, "1. <b>raw caption first line</b>") {
		t.Errorf("caption fallback not used:\n%s", out)
	}
	if strings.Contains(out, "second line") {
		t.Errorf("fallback should use only the first line:\n%s", out)
	}
}

func TestPageKeyboard(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		totalPages int
		wantRows   int
		wantNav    []string
	}{
		{"single page", 1, 1, 1, nil},
		{"first of many", 1, 3, 2, []string{"page|k|2"}},
		{"middle", 2, 3, 2, []string{"page|k|1", "page|k|3"}},
		{"last", 3, 3, 2, []string{"page|k|2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := PageKeyboard(&search.Page{
				PageNumber: tt.page,
				TotalPages: tt.totalPages,
				SessionKey: "k",
			})
			if len(kb.InlineKeyboard) != tt.wantRows {
				t.Fatalf("rows = %d, want %d", len(kb.InlineKeyboard), tt.wantRows)
			}
			if tt.wantNav != nil {
				nav := kb.InlineKeyboard[0]
				if len(nav) != len(tt.wantNav) {
					t.Fatalf("nav buttons = %d, want %d", len(nav), len(tt.wantNav))
				}
				for i, want := range tt.wantNav {
					if nav[i].CallbackData != want {
						t.Errorf("nav[%d].CallbackData = %q, want %q", i, nav[i].CallbackData, want)
					}
				}
			}
			last := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
			if len(last) != 1 || last[0].CallbackData != "close" {
				t.Errorf("last row should be the close button: %+v", last)
			}
		})
	}
}
