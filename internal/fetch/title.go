package fetch

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// untitledFallback is used when no strategy yields a non-empty title.
const untitledFallback = "Untitled"

// maxFilenameLen bounds the document filename derived from the title.
const maxFilenameLen = 200

// Pages embed metadata in script variables; both quote styles appear in the
// wild.
var (
	msgTitleRe  = regexp.MustCompile(`var\s+msg_title\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	commentIDRe = regexp.MustCompile(`var\s+comment_id\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// titleStrategies are tried in order; the first non-empty result wins.
var titleStrategies = []func([]byte) string{
	extractVarTitle,
	extractOGTitle,
	extractTitleElement,
}

// ExtractTitle returns the article title, trimmed, falling back to
// "Untitled" when no strategy matches.
func ExtractTitle(body []byte) string {
	for _, strategy := range titleStrategies {
		if title := strings.TrimSpace(strategy(body)); title != "" {
			return title
		}
	}

	return untitledFallback
}

// ExtractCommentID returns the embedded comment-thread identifier, or empty
// when the page has none.
func ExtractCommentID(body []byte) string {
	return strings.TrimSpace(matchQuotedVar(commentIDRe, body))
}

// extractVarTitle reads the page-embedded title variable.
func extractVarTitle(body []byte) string {
	return matchQuotedVar(msgTitleRe, body)
}

// extractOGTitle reads the Open Graph title meta tag.
func extractOGTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	ogTitle, _ := doc.Find(`meta[property="og:title"]`).Attr("content")

	return ogTitle
}

// extractTitleElement reads the document's <title> element.
func extractTitleElement(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	return doc.Find("title").First().Text()
}

// matchQuotedVar returns the quoted literal captured by a two-alternative
// regexp (double- then single-quoted group).
func matchQuotedVar(re *regexp.Regexp, body []byte) string {
	match := re.FindSubmatch(body)
	if match == nil {
		return ""
	}

	if len(match[1]) > 0 {
		return string(match[1])
	}

	return string(match[2])
}

// whitespaceRe collapses runs of whitespace in filenames.
var whitespaceRe = regexp.MustCompile(`\s+`)

// SafeFileName converts an article title into a filesystem-safe filename:
// whitespace collapsed, reserved characters percent-encoded, and the result
// truncated to a bounded length.
func SafeFileName(title string) string {
	name := whitespaceRe.ReplaceAllString(strings.TrimSpace(title), " ")

	var b strings.Builder
	for _, r := range name {
		if isReservedFilenameChar(r) {
			b.WriteString(url.QueryEscape(string(r)))
			continue
		}
		b.WriteRune(r)
	}

	name = b.String()
	if len(name) > maxFilenameLen {
		cut := maxFilenameLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}

	if name == "" {
		return untitledFallback
	}

	return name
}

// isReservedFilenameChar reports whether the rune is unsafe in a filename.
func isReservedFilenameChar(r rune) bool {
	switch r {
	case '/', '\\', '?', '%', '*', ':', '|', '"', '<', '>', '#':
		return true
	default:
		return false
	}
}
