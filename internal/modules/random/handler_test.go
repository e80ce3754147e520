package random

import (
	"context"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/lineutil"
	"github.com/garyellow/line-foodfinder/internal/recommend"
)

type fakeRecommender struct {
	got []recommend.Request
}

func (f *fakeRecommender) Random(_ context.Context, req recommend.Request) []messaging_api.MessageInterface {
	f.got = append(f.got, req)
	return []messaging_api.MessageInterface{lineutil.NewTextMessage("ok")}
}

func TestCanHandle(t *testing.T) {
	t.Parallel()
	h := NewHandler(&fakeRecommender{})

	tests := []struct {
		text string
		want bool
	}{
		{"สุ่มมา", true},
		{"สุ่มพิซซ่ามา", true},
		{"ช่วยสุ่ม ร้านกาแฟ มาหน่อย", true},
		{"มาสุ่ม", true},
		{"สุ่ม", false},
		{"มา", false},
		{"แดกไร", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, h.CanHandle(tt.text), "text %q", tt.text)
	}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()
	rec := &fakeRecommender{}
	h := NewHandler(rec)

	var _ bot.SearchHandler = h
	assert.True(t, h.SpendsSearchQuota())

	msgs := h.HandleMessage(context.Background(), bot.Input{
		Text:   "สุ่มพิซซ่ามา",
		UserID: "U1",
		ChatID: "G1",
		Scope:  recommend.ScopeGroup,
	})

	require.Len(t, msgs, 1)
	require.Len(t, rec.got, 1)
	assert.Equal(t, recommend.Request{SenderID: "U1", Scope: recommend.ScopeGroup, Text: "สุ่มพิซซ่ามา"}, rec.got[0])
}
