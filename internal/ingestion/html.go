// Package ingestion loads job catalog files and cleans HTML job
// descriptions into plain text.
package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var collapseSpaces = regexp.MustCompile(`[ \t]+`)
var collapseBlankLines = regexp.MustCompile(`\n\n\n+`)

// CleanJobDescription strips an HTML job description down to readable
// plain text. Block elements become line breaks and list items become
// dashed bullets; script and style content is dropped entirely.
func CleanJobDescription(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse job description HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find("p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, table").AfterHtml("\n")

	return CleanText(doc.Text()), nil
}

// CleanText normalizes extracted text: LF line endings, collapsed runs of
// spaces within lines, trimmed lines, at most one blank line between
// paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = collapseSpaces.ReplaceAllString(strings.TrimSpace(line), " ")
		cleaned = append(cleaned, line)
	}

	result := strings.Join(cleaned, "\n")
	result = collapseBlankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
