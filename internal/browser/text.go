package browser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// PageText converts page HTML to markdown-ish text under a URL header,
// truncated after truncateAfter characters when that is positive.
func PageText(url, html string, truncateAfter int) (string, error) {
	text, err := html2text.FromString(html)
	if err != nil {
		return "", fmt.Errorf("could not convert HTML to text: %w", err)
	}

	markdown := cleanMarkdown(text)
	if truncateAfter > 0 && len(markdown) > truncateAfter {
		markdown = truncateRunes(markdown, truncateAfter) + fmt.Sprintf("\n\n... (output truncated after %d chars, full content was %d chars)", truncateAfter, len(text))
	}

	return fmt.Sprintf("==========================\n%s\n==========================\n\n%s", url, markdown), nil
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func cleanMarkdown(markdown string) string {
	for strings.Contains(markdown, "\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	}

	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "- ") {
			lines[i] = "- " + line[2:]
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseWindowSize parses "WxH", falling back to 1280x720.
func ParseWindowSize(size string) (int, int) {
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return defaultWidth, defaultHeight
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return defaultWidth, defaultHeight
	}
	return width, height
}

// EnsureProtocol prefixes bare hosts with http://.
func EnsureProtocol(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}
