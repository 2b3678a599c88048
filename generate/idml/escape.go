package idml

import "strings"

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape prepares user supplied text for embedding into markup: the five
// reserved markup characters are entity-escaped and control characters
// outside tab, carriage return and line feed are dropped.
func Escape(s string) string {
	return markupEscaper.Replace(dropControl(s))
}

// dropControl removes control characters which are not representable in XML
// 1.0 text content. Used alone when the markup library does entity escaping
// itself.
func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\r' && r != '\n' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}
