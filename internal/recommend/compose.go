package recommend

import (
	"net/url"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/lineutil"
	"github.com/garyellow/line-foodfinder/internal/places"
)

// Reply texts.
const (
	NotFoundText = "หาร้านไม่เจอเลย ลองใหม่อีกทีนะ 🙏"

	noWebsiteLabel = "ไม่มีเว็บไซต์"
	websiteLabel   = "เว็บไซต์"
	mapLabel       = "แผนที่"
)

// NoWebsitePostback is the postback data of the "no website" button. It
// carries nothing actionable and is answered with silence.
const NoWebsitePostback = "action=no_website"

type placeCard struct {
	place    places.Place
	detail   places.Detail
	imageURL string
}

func notFoundMessage() messaging_api.MessageInterface {
	return lineutil.NewTextMessageWithQuickReply(NotFoundText,
		lineutil.QuickReplyRandom(),
		lineutil.QuickReplyShareLocation(),
	)
}

func locationCard(p places.Place) messaging_api.MessageInterface {
	return lineutil.NewLocationMessage(p.Name, p.Address(), p.Lat, p.Lng)
}

func buttonCard(c placeCard) messaging_api.MessageInterface {
	address := c.detail.FormattedAddress
	if address == "" {
		address = c.place.Address()
	}
	return lineutil.NewButtonsTemplate(
		c.place.Name+" "+address,
		c.place.Name,
		address,
		c.imageURL,
		cardActions(c),
	)
}

func carouselCard(keyword string, cards []placeCard) messaging_api.MessageInterface {
	columns := make([]lineutil.CarouselColumn, len(cards))
	names := make([]string, len(cards))
	for i, c := range cards {
		columns[i] = lineutil.CarouselColumn{
			ThumbnailImageURL: c.imageURL,
			Title:             c.place.Name,
			Text:              subtitle(c),
			Actions:           cardActions(c),
		}
		names[i] = c.place.Name
	}
	return lineutil.NewCarouselTemplate(keyword+": "+strings.Join(names, ", "), columns)
}

// subtitle is the phone number, falling back to the address.
func subtitle(c placeCard) string {
	if phone := strings.TrimSpace(c.detail.Phone); phone != "" {
		return phone
	}
	if addr := strings.TrimSpace(c.detail.FormattedAddress); addr != "" {
		return addr
	}
	return c.place.Address()
}

// cardActions always returns two actions so carousel columns stay uniform.
func cardActions(c placeCard) []lineutil.Action {
	website := lineutil.NewPostbackAction(noWebsiteLabel, NoWebsitePostback)
	if w := c.detail.Website; isHTTPURL(w) {
		website = lineutil.NewURIAction(websiteLabel, w)
	}
	return []lineutil.Action{website, lineutil.NewURIAction(mapLabel, mapURL(c))}
}

func mapURL(c placeCard) string {
	if isHTTPURL(c.detail.URL) {
		return c.detail.URL
	}
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", c.place.Name)
	if c.place.PlaceID != "" {
		q.Set("query_place_id", c.place.PlaceID)
	}
	return "https://www.google.com/maps/search/?" + q.Encode()
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
