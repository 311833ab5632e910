package internal

import "strings"

var filenameReplacer = strings.NewReplacer(
	"/", " ",
	"\\", " ",
	"?", " ",
	"%", " ",
	"*", " ",
	":", " ",
	"|", " ",
	"\"", " ",
	"<", " ",
	">", " ",
)

// Sanitize replaces every character that is illegal in a file name with a
// single space. The rune count of the title is preserved.
func Sanitize(title string) string {
	return filenameReplacer.Replace(title)
}
