package ocr

import (
	"regexp"
	"strings"
)

var (
	// decorative divider rows receipts print between sections
	reDivider = regexp.MustCompile(`^[-=_*.]{3,}$`)
	reSpaces  = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize cleans recognized text for the expense parser: whitespace is
// collapsed per line, divider rows are dropped, and blank runs shrink to a
// single separator. Line order is preserved since the parser keys the
// description off the first non-blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var out []string
	blanks := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(reSpaces.ReplaceAllString(line, " "), " \t")
		if reDivider.MatchString(strings.TrimSpace(line)) {
			line = ""
		}
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
