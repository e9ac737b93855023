package news

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// maxSummaryRunes bounds a summary so a verbose feed cannot crowd the prompt.
const maxSummaryRunes = 280

// summarize converts an item description to plain markdown text. Publisher tags are
// removed, and a summary that only repeats the headline (the Google News shape) is dropped.
func summarize(description, title, baseURL string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		doc.Find("font").Remove()
		if body, err := doc.Find("body").Html(); err == nil {
			description = body
		}
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(description)
	if err != nil || strings.TrimSpace(converted) == "" {
		converted = plainText(description)
	}

	text := strings.Join(strings.Fields(stripLinks(converted)), " ")
	if text == "" || strings.HasPrefix(strings.TrimSpace(title), text) {
		return ""
	}

	if runes := []rune(text); len(runes) > maxSummaryRunes {
		text = string(runes[:maxSummaryRunes]) + "…"
	}
	return text
}

// stripLinks reduces markdown links "[text](url)" to their text.
func stripLinks(markdown string) string {
	var b strings.Builder
	for {
		open := strings.Index(markdown, "[")
		if open < 0 {
			break
		}
		mid := strings.Index(markdown[open:], "](")
		if mid < 0 {
			break
		}
		closeIdx := strings.Index(markdown[open+mid:], ")")
		if closeIdx < 0 {
			break
		}
		b.WriteString(markdown[:open])
		b.WriteString(markdown[open+1 : open+mid])
		markdown = markdown[open+mid+closeIdx+1:]
	}
	b.WriteString(markdown)
	return b.String()
}

// plainText returns the visible text of an HTML fragment.
func plainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}

// publisher extracts the source name Google News appends to descriptions as
// <font color="#6f6f6f">Publisher</font>.
func publisher(description string) string {
	if !strings.Contains(description, "<font") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("font").Last().Text())
}

// publisherFromTitle splits "Headline - Publisher".
func publisherFromTitle(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(title[idx+3:])
}
