package lineutil

import "unicode/utf8"

// LINE API Character Limits (Rune count)
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // Text message max content length
	MaxAltTextLength     = 400  // Template message alt text length
	MaxPostbackData      = 300  // Postback action data length, in bytes

	// Template Message Limits
	MaxTemplateTitleLength   = 40  // Buttons/Carousel template title
	MaxTemplateTextNoImage   = 160 // Buttons template text without image
	MaxTemplateTextWithImage = 60  // Buttons template text with image
	MaxCarouselTemplateText  = 60  // Carousel column text when titled or with image
	MaxCarouselColumnCount   = 10  // Max columns in a carousel
	MaxTemplateActionCount   = 4   // Max actions per template column
	MaxActionLabelLength     = 20  // Template action label

	// Location Message Limits
	MaxLocationTitleLength   = 100
	MaxLocationAddressLength = 100

	// Quick Reply Limits
	MaxQuickReplyItemCount = 13 // Max items in a quick reply
	MaxQuickReplyLabel     = 20 // Max label length for quick reply item
)

// Truncate shortens s to at most limit runes, ending with "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// TruncateBytes shortens s to at most limit bytes without splitting a rune.
func TruncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
