package assets

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lazySrcAttr is the attribute lazy-loading pages put the real image URL in;
// when present it wins over the eager src, which is typically a placeholder.
const lazySrcAttr = "data-src"

// backgroundImageRe matches CSS background-image declarations in inline
// styles, with the URL single-quoted, double-quoted, entity-quoted, or bare.
var backgroundImageRe = regexp.MustCompile(
	`background-image\s*:\s*url\(\s*(?:&quot;|&#34;|&#39;|'|")?([^'"()\s]+?)(?:&quot;|&#34;|&#39;|'|")?\s*\)`,
)

// Extractor produces the set of harvestable image URLs in a document body.
type Extractor struct {
	classifier *Classifier
}

// NewExtractor creates an extractor filtering through the given classifier.
func NewExtractor(classifier *Classifier) *Extractor {
	return &Extractor{classifier: classifier}
}

// Extract walks the document for image elements and inline background-image
// declarations, returning the distinct URLs accepted by the classifier in
// first-seen order. Malformed markup yields a best-effort result rather than
// an error.
func (e *Extractor) Extract(body []byte) []string {
	seen := make(map[string]bool)
	var urls []string

	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || seen[candidate] {
			return
		}
		if !e.classifier.IsHarvestable(candidate) {
			return
		}
		seen[candidate] = true
		urls = append(urls, candidate)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// Fall back to scanning the raw bytes for inline styles only.
		e.extractBackgroundImages(string(body), add)
		return urls
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if lazy, ok := sel.Attr(lazySrcAttr); ok && strings.TrimSpace(lazy) != "" {
			add(lazy)
			return
		}
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
	})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		e.extractBackgroundImages(style, add)
	})

	return urls
}

// extractBackgroundImages feeds every background-image URL in the style text
// to the add callback.
func (e *Extractor) extractBackgroundImages(style string, add func(string)) {
	for _, match := range backgroundImageRe.FindAllStringSubmatch(style, -1) {
		add(match[1])
	}
}
