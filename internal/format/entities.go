package format

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string
// This is required because Telegram uses UTF-16 code units for entity offsets/lengths
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // Non-BMP characters (surrogate pairs)
			} else {
				length += 1
			}
		}
	}
	return length
}

// BoldFirstLine marks the first line of text bold. User supplied text is
// never parsed for markup, so reminder bodies are sent verbatim.
func BoldFirstLine(text string) ParseResult {
	header := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		header = text[:i]
	}
	n := UTF16Len(header)
	if n == 0 {
		return ParseResult{Text: text}
	}
	return ParseResult{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 0, Length: n}},
	}
}
