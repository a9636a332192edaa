package catalog

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// stripMarkup extracts visible text from descriptions scraped with HTML
// markup. Script and style content is dropped and whitespace collapsed.
// Plain text passes through unchanged apart from whitespace.
func stripMarkup(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return cleanText(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return cleanText(textBuilder.String())
			}
			// Malformed markup: fall back to the raw cell
			return cleanText(input)

		case html.StartTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = true
			case "style":
				inStyle = true
			case "br", "p", "li", "div":
				textBuilder.WriteString(" ")
			}

		case html.SelfClosingTagToken:
			textBuilder.WriteString(" ")

		case html.EndTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			}

		case html.TextToken:
			if !inScript && !inStyle {
				textBuilder.WriteString(tokenizer.Token().Data)
				textBuilder.WriteString(" ")
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
