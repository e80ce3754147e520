package bot

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/lineutil"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/ratelimit"
	"github.com/garyellow/line-foodfinder/internal/recommend"
)

// stubHandler implements Handler for testing
type stubHandler struct {
	name    string
	match   func(string) bool
	search  bool
	panics  bool
	calls   atomic.Int32
	lastIn  Input
	lastCtx context.Context
}

func (s *stubHandler) Name() string               { return s.name }
func (s *stubHandler) CanHandle(text string) bool { return s.match(text) }
func (s *stubHandler) SpendsSearchQuota() bool    { return s.search }
func (s *stubHandler) HandleMessage(ctx context.Context, in Input) []messaging_api.MessageInterface {
	s.calls.Add(1)
	s.lastIn = in
	s.lastCtx = ctx
	if s.panics {
		panic("boom")
	}
	return []messaging_api.MessageInterface{lineutil.NewTextMessage(s.name)}
}

type stubLocation struct {
	calls    int
	lat, lng float64
	in       Input
}

func (s *stubLocation) Name() string { return "nearby" }
func (s *stubLocation) HandleLocation(_ context.Context, in Input, lat, lng float64) []messaging_api.MessageInterface {
	s.calls++
	s.in, s.lat, s.lng = in, lat, lng
	return []messaging_api.MessageInterface{lineutil.NewTextMessage("nearby")}
}

func containsText(marker string) func(string) bool {
	return func(s string) bool { return ContainsAll(s, marker) }
}

type processorFixture struct {
	proc   *Processor
	random *stubHandler
	dish   *stubHandler
	loc    *stubLocation
}

func newProcessorFixture(t *testing.T, userBurst, searchBurst float64, daily int) processorFixture {
	t.Helper()

	random := &stubHandler{name: "random", match: func(s string) bool { return ContainsAll(s, "สุ่ม", "มา") }, search: true}
	dish := &stubHandler{name: "dish", match: containsText("แดกไร")}
	reg := NewRegistry()
	reg.Register(random)
	reg.Register(dish)

	loc := &stubLocation{}
	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "user", Burst: userBurst, RefillRate: 0.001})
	searchLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "search", Burst: searchBurst, RefillRate: 0.001, DailyLimit: daily})

	proc := NewProcessor(ProcessorConfig{
		Registry:      reg,
		Nearby:        loc,
		UserLimiter:   userLimiter,
		SearchLimiter: searchLimiter,
		Logger:        logger.New("error"),
		BotConfig: &config.BotConfig{
			WebhookTimeout:   5 * time.Second,
			MaxMessageLength: 50,
		},
	})
	return processorFixture{proc: proc, random: random, dish: dish, loc: loc}
}

func textEvent(source webhook.SourceInterface, text string) webhook.MessageEvent {
	return webhook.MessageEvent{
		Source:  source,
		Message: webhook.TextMessageContent{Id: "m1", Text: text},
	}
}

func firstText(t *testing.T, msgs []messaging_api.MessageInterface) string {
	t.Helper()
	require.NotEmpty(t, msgs)
	msg, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok, "expected text message, got %T", msgs[0])
	return msg.Text
}

func TestProcessMessage_DispatchesNormalizedText(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, "  สุ่ม   พิซซ่า  มา "))
	require.NoError(t, err)
	assert.Equal(t, "random", firstText(t, msgs))
	assert.Equal(t, "สุ่ม พิซซ่า มา", f.random.lastIn.Text)
	assert.Equal(t, recommend.ScopeDirect, f.random.lastIn.Scope)
	assert.Equal(t, "U1", f.random.lastIn.UserID)

	_, hasDeadline := f.random.lastCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestProcessMessage_FirstMatchWins(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, "สุ่มแดกไรมา"))
	require.NoError(t, err)
	assert.Equal(t, "random", firstText(t, msgs))
	assert.Zero(t, f.dish.calls.Load())
}

func TestProcessMessage_UnmatchedIsIgnored(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.GroupSource{GroupId: "G1", UserId: "U1"}, "hello there"))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessMessage_Help(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	for _, text := range []string{"help", "HELP", "วิธีใช้", " ช่วยด้วย "} {
		msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, text))
		require.NoError(t, err)
		assert.Contains(t, firstText(t, msgs), "วิธีใช้", "text %q", text)
	}
}

func TestProcessMessage_TooLong(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	long := "สุ่มมา" + strings.Repeat("ก", 60)
	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, long))
	require.NoError(t, err)
	assert.Equal(t, tooLongText, firstText(t, msgs))
	assert.Zero(t, f.random.calls.Load())
}

func TestProcessMessage_UserRateLimit(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 1, 10, 0)

	_, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, "แดกไร"))
	require.NoError(t, err)

	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, "แดกไร"))
	require.NoError(t, err)
	assert.Equal(t, userLimitText, firstText(t, msgs))

	// Groups are throttled silently.
	group := webhook.GroupSource{GroupId: "G1", UserId: "U1"}
	_, _ = f.proc.ProcessMessage(context.Background(), textEvent(group, "แดกไร"))
	msgs, err = f.proc.ProcessMessage(context.Background(), textEvent(group, "แดกไร"))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessMessage_SearchQuota(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 1, 0)
	src := webhook.UserSource{UserId: "U1"}

	msgs, _ := f.proc.ProcessMessage(context.Background(), textEvent(src, "สุ่มมา"))
	assert.Equal(t, "random", firstText(t, msgs))

	msgs, _ = f.proc.ProcessMessage(context.Background(), textEvent(src, "สุ่มมา"))
	assert.Equal(t, searchBurstText, firstText(t, msgs))
	assert.Equal(t, int32(1), f.random.calls.Load())

	// Non-search triggers are not charged.
	msgs, _ = f.proc.ProcessMessage(context.Background(), textEvent(src, "แดกไร"))
	assert.Equal(t, "dish", firstText(t, msgs))
}

func TestProcessMessage_SearchDailyCap(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 1)
	src := webhook.UserSource{UserId: "U1"}

	_, _ = f.proc.ProcessMessage(context.Background(), textEvent(src, "สุ่มมา"))
	msgs, _ := f.proc.ProcessMessage(context.Background(), textEvent(src, "สุ่มมา"))
	assert.Contains(t, firstText(t, msgs), "1 ครั้ง")
}

func TestProcessMessage_Location(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	event := webhook.MessageEvent{
		Source:  webhook.RoomSource{RoomId: "R1", UserId: "U2"},
		Message: webhook.LocationMessageContent{Id: "m2", Latitude: 13.75, Longitude: 100.5},
	}
	msgs, err := f.proc.ProcessMessage(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "nearby", firstText(t, msgs))
	assert.Equal(t, 1, f.loc.calls)
	assert.InDelta(t, 13.75, f.loc.lat, 1e-9)
	assert.InDelta(t, 100.5, f.loc.lng, 1e-9)
	assert.Equal(t, recommend.ScopeRoom, f.loc.in.Scope)
	assert.Equal(t, "R1", f.loc.in.ChatID)
}

func TestProcessMessage_OtherTypesIgnored(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	event := webhook.MessageEvent{
		Source:  webhook.UserSource{UserId: "U1"},
		Message: webhook.StickerMessageContent{Id: "m3", PackageId: "1", StickerId: "1"},
	}
	msgs, err := f.proc.ProcessMessage(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestWillReply(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)
	user := webhook.UserSource{UserId: "U1"}

	tests := []struct {
		name  string
		event webhook.MessageEvent
		want  bool
	}{
		{"trigger", textEvent(user, "สุ่มมา"), true},
		{"dish", textEvent(user, "แดกไร"), true},
		{"help", textEvent(user, "  HELP "), true},
		{"chatter", textEvent(user, "hello"), false},
		{"blank", textEvent(user, "   "), false},
		{"location", webhook.MessageEvent{Source: user, Message: webhook.LocationMessageContent{Id: "m2", Latitude: 13.7, Longitude: 100.5}}, true},
		{"sticker", webhook.MessageEvent{Source: user, Message: webhook.StickerMessageContent{Id: "m3", PackageId: "1", StickerId: "1"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.proc.WillReply(tt.event))
		})
	}

	// Checking does not dispatch or spend limits.
	assert.Zero(t, f.random.calls.Load())
	assert.Zero(t, f.loc.calls)
}

func TestProcessMessage_HandlerPanicRecovered(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)
	f.dish.panics = true

	msgs, err := f.proc.ProcessMessage(context.Background(), textEvent(webhook.UserSource{UserId: "U1"}, "แดกไร"))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessPostback_NoWebsite(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	msgs, err := f.proc.ProcessPostback(context.Background(), webhook.PostbackEvent{
		Source:   webhook.UserSource{UserId: "U1"},
		Postback: &webhook.PostbackContent{Data: recommend.NoWebsitePostback},
	})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProcessFollowAndJoin(t *testing.T) {
	t.Parallel()
	f := newProcessorFixture(t, 10, 10, 0)

	msgs, err := f.proc.ProcessFollow(webhook.FollowEvent{})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = f.proc.ProcessJoin(webhook.JoinEvent{})
	require.NoError(t, err)
	assert.Equal(t, welcomeText, firstText(t, msgs))
}

func TestScopeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, recommend.ScopeDirect, ScopeOf(webhook.UserSource{UserId: "U"}))
	assert.Equal(t, recommend.ScopeGroup, ScopeOf(webhook.GroupSource{GroupId: "G"}))
	assert.Equal(t, recommend.ScopeRoom, ScopeOf(webhook.RoomSource{RoomId: "R"}))
	assert.Equal(t, "G", GetChatID(webhook.GroupSource{GroupId: "G", UserId: "U"}))
	assert.Equal(t, "U", GetUserID(webhook.GroupSource{GroupId: "G", UserId: "U"}))
}
