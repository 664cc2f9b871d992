// Package htmlsanitize cleans admin-entered text before it is stored.
// Descriptions keep a safe subset of formatting; names, labels and titles
// lose all markup.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	// descriptionPolicy is built once on first use.
	descriptionPolicy = sync.OnceValue(func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()

		// Template spec sheets ("A4, 300 dpi, CMYK") are usually tables.
		p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
		p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		p.AllowElements("u", "s", "sub", "sup", "mark")

		// Outbound links in descriptions open in a new tab and pass no SEO weight.
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	})
)

// Text strips every tag and trims the result. Entities stay escaped, so the
// value is safe to render as-is.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}

// RichText prepares a product, bundle or section description for storage.
// Input without markup is escaped and wrapped in a paragraph with line
// breaks preserved; HTML input is sanitized.
func RichText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !looksLikeHTML(s) {
		return "<p>" + strings.ReplaceAll(html.EscapeString(s), "\n", "<br>") + "</p>"
	}
	return descriptionPolicy().Sanitize(s)
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
