// Package extract turns free-text media captions into structured movie
// details. Extraction is pure and field-independent: every field has an
// ordered list of matchers, the first match wins, and a field that matches
// nothing stays at its zero value. There are no "Unknown" placeholders.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Details is the structured result of parsing one caption. Zero values mean
// the field was absent from the caption: "" for strings, 0 for numbers, nil
// for Languages and the zero Episode for the episode marker.
type Details struct {
	Title     string
	Year      int
	Quality   string
	SourceTag string
	Languages []string
	Season    int
	Episode   Episode
	Codec     string
	Caption   string
}

// Extract parses a caption. It never fails: noisy or empty input simply
// yields fewer fields. Calling it twice with the same caption gives the
// same result.
func Extract(caption string) Details {
	d := Details{Caption: caption}
	if strings.TrimSpace(caption) == "" {
		return d
	}
	// Underscores are always separators in release names; fold them away so
	// word boundaries land where a human reads them.
	text := strings.Join(strings.Fields(strings.ReplaceAll(caption, "_", " ")), " ")

	d.Title = matchTitle(text)
	d.Year = firstInt(yearMatchers, text)
	d.Quality = firstString(qualityMatchers, text)
	d.SourceTag = firstString(sourceTagMatchers, text)
	d.Languages = matchLanguages(text)
	d.Season = firstInt(seasonMatchers, text)
	d.Episode = matchEpisode(text)
	d.Codec = firstString(codecMatchers, text)
	return d
}

func firstInt(matchers []func(string) (int, bool), text string) int {
	for _, m := range matchers {
		if v, ok := m(text); ok {
			return v
		}
	}
	return 0
}

func firstString(matchers []func(string) (string, bool), text string) string {
	for _, m := range matchers {
		if v, ok := m(text); ok {
			return v
		}
	}
	return ""
}

// --- Title ---

// The title is the leading run of text up to the first year token, (year)
// group, resolution tag, opening bracket or " - " separator. Separator
// characters . _ - inside the run become spaces. Pinned rule: " - " ends
// the title, a bare hyphen inside a word does not, but is still rewritten
// to a space.
var titleBoundaries = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*(?:19[5-9]\d|20\d{2})`),
	regexp.MustCompile(`\b(?:19[5-9]\d|20\d{2})\b`),
	regexp.MustCompile(`(?i)\b(?:360|480|720|1080|1440|2160)[ .]?p\b`),
	regexp.MustCompile(`(?i)\b[48]k\b`),
	regexp.MustCompile(`[\[({]`),
	regexp.MustCompile(`\s-\s`),
}

var titleSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ")

func matchTitle(text string) string {
	cut := len(text)
	for _, re := range titleBoundaries {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	head := titleSeparators.Replace(text[:cut])
	if !strings.ContainsFunc(head, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) {
		return ""
	}
	return strings.Join(strings.Fields(head), " ")
}

// --- Year ---

var (
	bracketYearRe = regexp.MustCompile(`\(\s*(19[5-9]\d|20\d{2})\s*\)`)
	bareYearRe    = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)
)

// Word boundaries keep resolution digits out: in "2160p" the trailing "p"
// is a word character, so \b never matches after the digits.
var yearMatchers = []func(string) (int, bool){
	func(s string) (int, bool) { return reInt(bracketYearRe, s) },
	func(s string) (int, bool) { return reInt(bareYearRe, s) },
}

func reInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// --- Quality ---

var (
	pQualityRe = regexp.MustCompile(`(?i)\b(360|480|720|1080|1440|2160)[ .]?p\b`)
	kQualityRe = regexp.MustCompile(`(?i)\b([48])k\b`)
)

// Canonical forms: lowercase "p" tags, uppercase "4K"/"8K".
var qualityMatchers = []func(string) (string, bool){
	func(s string) (string, bool) {
		if m := pQualityRe.FindStringSubmatch(s); m != nil {
			return m[1] + "p", true
		}
		return "", false
	},
	func(s string) (string, bool) {
		if m := kQualityRe.FindStringSubmatch(s); m != nil {
			return m[1] + "K", true
		}
		return "", false
	},
}

// --- Source / print tag ---

var sourceTagRe = regexp.MustCompile(`(?i)\b(web[\s-]?dl|web[\s-]?rip|blu[\s-]?ray|hd[\s-]?rip|dvd[\s-]?rip|dvd[\s-]?scr|cam[\s-]?rip)\b`)

var sourceTagCanonical = map[string]string{
	"webdl":  "WEB-DL",
	"webrip": "WEBRip",
	"bluray": "BluRay",
	"hdrip":  "HDRip",
	"dvdrip": "DVDRip",
	"dvdscr": "DVDScr",
	"camrip": "CAMRip",
}

var sourceTagMatchers = []func(string) (string, bool){
	func(s string) (string, bool) {
		m := sourceTagRe.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		folded := strings.ToLower(m[1])
		folded = strings.Map(func(r rune) rune {
			if r == '-' || r == ' ' {
				return -1
			}
			return r
		}, folded)
		if canon, ok := sourceTagCanonical[folded]; ok {
			return canon, true
		}
		return "", false
	},
}

// --- Languages ---

var languageVocabulary = map[string]string{
	"hindi":     "Hindi",
	"english":   "English",
	"tamil":     "Tamil",
	"telugu":    "Telugu",
	"malayalam": "Malayalam",
	"kannada":   "Kannada",
	"bengali":   "Bengali",
	"marathi":   "Marathi",
	"punjabi":   "Punjabi",
	"gujarati":  "Gujarati",
	"urdu":      "Urdu",
	"korean":    "Korean",
	"japanese":  "Japanese",
	"chinese":   "Chinese",
	"french":    "French",
	"spanish":   "Spanish",
	"german":    "German",
	"russian":   "Russian",
}

var (
	bracketGroupRe = regexp.MustCompile(`[\[(]([^\])]+)[\])]`)
	langSplitRe    = regexp.MustCompile(`[+,/&\-\s]+`)
)

// matchLanguages only looks inside bracketed groups, so prose like "English
// subtitles available" in the tail of a caption is not treated as an audio
// language. Tokens are deduplicated and sorted for determinism.
func matchLanguages(text string) []string {
	seen := map[string]bool{}
	for _, group := range bracketGroupRe.FindAllStringSubmatch(text, -1) {
		for _, token := range langSplitRe.Split(group[1], -1) {
			if canon, ok := languageVocabulary[strings.ToLower(token)]; ok {
				seen[canon] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// --- Season ---

var (
	seasonWordRe = regexp.MustCompile(`(?i)\bseason\s*(\d{1,3})`)
	seasonTagRe  = regexp.MustCompile(`(?i)\bS(\d{1,2})(?:\D|$)`)
)

var seasonMatchers = []func(string) (int, bool){
	func(s string) (int, bool) { return reInt(seasonWordRe, s) },
	func(s string) (int, bool) { return reInt(seasonTagRe, s) },
}

// --- Episode ---

var (
	episodeWordRe = regexp.MustCompile(`(?i)\bep(?:isode)?s?\.?\s*(\d{1,4})(?:\s*(?:-|–|to)\s*(\d{1,4}))?`)
	episodeTagRe  = regexp.MustCompile(`(?i)E(\d{1,4})(?:\s*[-–]\s*E?(\d{1,4}))?`)
	completeRe    = regexp.MustCompile(`(?i)\bcomplete\b`)
)

// matchEpisode resolves the episode marker: explicit "Episode"/"Ep" forms
// first, then the bare E-tag, then a "Complete" pack marker when no number
// was found at all.
func matchEpisode(text string) Episode {
	for _, re := range []*regexp.Regexp{episodeWordRe, episodeTagRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if m[2] != "" {
			if end, err := strconv.Atoi(m[2]); err == nil && end != start {
				return EpisodeSpan(start, end)
			}
		}
		return SingleEpisode(start)
	}
	if completeRe.MatchString(text) {
		return Episode{Kind: EpisodeComplete}
	}
	return Episode{}
}

// --- Codec ---

var codecRe = regexp.MustCompile(`(?i)\b(x\.?264|x\.?265|h\.?264|h\.?265|hevc|av1)\b`)

var codecCanonical = map[string]string{
	"x264": "x264",
	"x265": "x265",
	"h264": "H264",
	"h265": "H265",
	"hevc": "HEVC",
	"av1":  "AV1",
}

var codecMatchers = []func(string) (string, bool){
	func(s string) (string, bool) {
		m := codecRe.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		folded := strings.ReplaceAll(strings.ToLower(m[1]), ".", "")
		if canon, ok := codecCanonical[folded]; ok {
			return canon, true
		}
		return "", false
	},
}
