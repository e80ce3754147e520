// Package lineutil provides utility functions for building LINE messages and actions.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// CarouselColumn represents a column in a carousel template.
type CarouselColumn struct {
	ThumbnailImageURL string
	Title             string
	Text              string
	Actions           []Action
}

// QuickReplyItem represents an item in a quick reply.
type QuickReplyItem struct {
	ImageURL string
	Action   Action
}

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a plain text message.
// LINE API limits: max 5000 characters per text message
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: Truncate(text, MaxTextMessageLength),
	}
}

// NewLocationMessage creates a location message pinned at lat/lng.
func NewLocationMessage(title, address string, lat, lng float64) *messaging_api.LocationMessage {
	if title == "" {
		title = "📍"
	}
	if address == "" {
		address = title
	}
	return &messaging_api.LocationMessage{
		Title:     Truncate(title, MaxLocationTitleLength),
		Address:   Truncate(address, MaxLocationAddressLength),
		Latitude:  lat,
		Longitude: lng,
	}
}

// NewButtonsTemplate creates a buttons template message with an optional thumbnail image.
// LINE API limits: max 4 actions, text max 60 chars (with image) or 160 chars (no image)
func NewButtonsTemplate(altText, title, text, thumbnailImageURL string, actions []Action) *messaging_api.TemplateMessage {
	if len(actions) > MaxTemplateActionCount {
		actions = actions[:MaxTemplateActionCount]
	}

	maxTextLen := MaxTemplateTextNoImage
	if thumbnailImageURL != "" {
		maxTextLen = MaxTemplateTextWithImage
	}
	if text == "" {
		text = "-"
	}

	template := &messaging_api.ButtonsTemplate{
		Title:             Truncate(title, MaxTemplateTitleLength),
		Text:              Truncate(text, maxTextLen),
		ThumbnailImageUrl: thumbnailImageURL,
		Actions:           actions,
	}

	return &messaging_api.TemplateMessage{
		AltText:  altTextOr(altText, title),
		Template: template,
	}
}

// NewCarouselTemplate creates a carousel template message.
// LINE API limits: max 10 columns, and every column must carry the same
// number of actions and either all or none of the thumbnails.
func NewCarouselTemplate(altText string, columns []CarouselColumn) *messaging_api.TemplateMessage {
	if len(columns) > MaxCarouselColumnCount {
		columns = columns[:MaxCarouselColumnCount]
	}

	withImage := true
	for _, col := range columns {
		if col.ThumbnailImageURL == "" {
			withImage = false
			break
		}
	}

	templateColumns := make([]messaging_api.CarouselColumn, len(columns))
	for i, col := range columns {
		actions := col.Actions
		if len(actions) > MaxTemplateActionCount {
			actions = actions[:MaxTemplateActionCount]
		}
		text := col.Text
		if text == "" {
			text = "-"
		}
		column := messaging_api.CarouselColumn{
			Title:   Truncate(col.Title, MaxTemplateTitleLength),
			Text:    Truncate(text, MaxCarouselTemplateText),
			Actions: actions,
		}
		if withImage {
			column.ThumbnailImageUrl = col.ThumbnailImageURL
		}
		templateColumns[i] = column
	}

	return &messaging_api.TemplateMessage{
		AltText: altTextOr(altText, "carousel"),
		Template: &messaging_api.CarouselTemplate{
			Columns: templateColumns,
		},
	}
}

// NewQuickReply creates a quick reply component.
// LINE API limits: max 13 items
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	quickReplyItems := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		quickReplyItems[i] = messaging_api.QuickReplyItem{
			ImageUrl: item.ImageURL,
			Action:   item.Action,
		}
	}

	return &messaging_api.QuickReply{
		Items: quickReplyItems,
	}
}

// NewTextMessageWithQuickReply creates a text message with quick reply buttons attached.
func NewTextMessageWithQuickReply(text string, items ...QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	if len(items) > 0 {
		msg.QuickReply = NewQuickReply(items)
	}
	return msg
}

// NewMessageAction creates a message action that sends text when tapped.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: Truncate(label, MaxActionLabelLength),
		Text:  text,
	}
}

// NewPostbackAction creates a postback action.
func NewPostbackAction(label, data string) Action {
	return &messaging_api.PostbackAction{
		Label: Truncate(label, MaxActionLabelLength),
		Data:  TruncateBytes(data, MaxPostbackData),
	}
}

// NewURIAction creates an action that opens uri.
func NewURIAction(label, uri string) Action {
	return &messaging_api.UriAction{
		Label: Truncate(label, MaxActionLabelLength),
		Uri:   uri,
	}
}

// NewLocationAction creates a quick reply action that opens the location picker.
func NewLocationAction(label string) Action {
	return &messaging_api.LocationAction{
		Label: Truncate(label, MaxQuickReplyLabel),
	}
}

// QuickReplyShareLocation is the quick reply button used to ask for a location share.
func QuickReplyShareLocation() QuickReplyItem {
	return QuickReplyItem{Action: NewLocationAction("📍 ส่งตำแหน่ง")}
}

// QuickReplyRandom is the quick reply button that triggers a random pick.
func QuickReplyRandom() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("🎲 สุ่มร้าน", "สุ่มร้านอาหารมา")}
}

// QuickReplyHelp is the quick reply button that shows usage.
func QuickReplyHelp() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("📖 วิธีใช้", "วิธีใช้")}
}

func altTextOr(altText, fallback string) string {
	if altText == "" {
		altText = fallback
	}
	return Truncate(altText, MaxAltTextLength)
}
