package recommend

import (
	"strings"

	"github.com/paulmach/orb"
)

// Scope is the kind of chat an event came from.
type Scope int

const (
	ScopeDirect Scope = iota
	ScopeGroup
	ScopeRoom
)

func (s Scope) String() string {
	switch s {
	case ScopeGroup:
		return "group"
	case ScopeRoom:
		return "room"
	default:
		return "user"
	}
}

// Request is one recommendation request derived from an inbound event.
type Request struct {
	SenderID string
	Scope    Scope
	Text     string    // trigger text, random path only
	Center   orb.Point // shared location, nearby path only
}

// UniqueUserPolicy swaps the search keyword for a fixed set of users in
// 1:1 chats. It only changes the keyword and grants nothing.
type UniqueUserPolicy struct {
	ids     map[string]struct{}
	Keyword string
}

// NewUniqueUserPolicy builds a policy from an allow-list of user IDs.
func NewUniqueUserPolicy(ids []string, keyword string) UniqueUserPolicy {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return UniqueUserPolicy{ids: set, Keyword: keyword}
}

// Applies reports whether req should use the policy keyword. Group and
// room requests never match.
func (p UniqueUserPolicy) Applies(req Request) bool {
	if req.Scope != ScopeDirect || req.SenderID == "" || p.Keyword == "" {
		return false
	}
	_, ok := p.ids[req.SenderID]
	return ok
}

// ExtractKeyword removes the first "สุ่ม" and the last "มา" from text and
// trims the rest. Other occurrences stay, so "มาม่า" survives. An empty
// remainder returns fallback.
func ExtractKeyword(text, fallback string) string {
	kw := strings.Replace(text, triggerRandom, "", 1)
	if i := strings.LastIndex(kw, triggerBring); i >= 0 {
		kw = kw[:i] + kw[i+len(triggerBring):]
	}
	kw = strings.Join(strings.Fields(kw), " ")
	if kw == "" {
		return fallback
	}
	return kw
}

const (
	triggerRandom = "สุ่ม"
	triggerBring  = "มา"
)
