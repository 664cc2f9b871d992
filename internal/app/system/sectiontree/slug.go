package sectiontree

import (
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
)

// Slugify lowercases name and turns every run of non-alphanumeric
// characters into a single hyphen, trimming hyphens at both ends.
// Diacritics are folded first so "Café Menus" becomes "cafe-menus".
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(text.Fold(name)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withSuffix disambiguates a colliding slug with a millisecond timestamp.
func withSuffix(slug string, now time.Time) string {
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
