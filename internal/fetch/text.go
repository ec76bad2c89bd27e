package fetch

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// htmlToText strips all markup from s, decodes entities and collapses
// whitespace runs to single spaces.
func htmlToText(s string) string {
	if s == "" {
		return ""
	}
	stripped := html.UnescapeString(stripPolicy.Sanitize(s))
	return collapseSpace(stripped)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
