package handlers

import (
	"context"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/provnuk88/Web3bot/internal/db"
)

func TestNewChallengeProperties(t *testing.T) {
	t.Parallel()
	for i := 0; i < 200; i++ {
		c := newChallenge()
		if c.First < 1 || c.First > 10 || c.Second < 1 || c.Second > 10 {
			t.Fatalf("operands out of range: %d + %d", c.First, c.Second)
		}
		if c.Answer != c.First+c.Second {
			t.Fatalf("answer %d does not match %d + %d", c.Answer, c.First, c.Second)
		}
		if c.Token == "" {
			t.Fatal("empty token")
		}
		if len(c.Options) != 8 {
			t.Fatalf("got %d options, want 8", len(c.Options))
		}
		correct := 0
		for _, o := range c.Options {
			if o == c.Answer {
				correct++
			}
		}
		if correct != 1 {
			t.Fatalf("answer %d appears %d times in %v", c.Answer, correct, c.Options)
		}
	}
}

func TestChallengeKeyboard(t *testing.T) {
	t.Parallel()
	c := newChallenge()
	kb := c.keyboard(42)

	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("got %d rows, want 2", len(kb.InlineKeyboard))
	}
	var buttons []api.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		if len(row) != 4 {
			t.Fatalf("got row of %d buttons, want 4", len(row))
		}
		buttons = append(buttons, row...)
	}
	for _, b := range buttons {
		data, ok := parseCaptchaCallbackData(*b.CallbackData)
		if !ok {
			t.Fatalf("unparseable callback data %q", *b.CallbackData)
		}
		if data.UserID != 42 {
			t.Errorf("callback user = %d, want 42", data.UserID)
		}
		if data.Token != c.Token {
			t.Errorf("callback token = %q, want %q", data.Token, c.Token)
		}
	}
}

func TestParseCaptchaCallbackData(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name string
		in   string
		want captchaCallbackData
		ok   bool
	}{
		{"valid", "captcha;42;tok-1;13", captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 13}, true},
		{"wrong prefix", "vote;42;tok-1;13", captchaCallbackData{}, false},
		{"missing field", "captcha;42;tok-1", captchaCallbackData{}, false},
		{"bad user id", "captcha;abc;tok-1;13", captchaCallbackData{}, false},
		{"bad answer", "captcha;42;tok-1;x", captchaCallbackData{}, false},
		{"empty token", "captcha;42;;13", captchaCallbackData{}, false},
		{"empty", "", captchaCallbackData{}, false},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseCaptchaCallbackData(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Errorf("parseCaptchaCallbackData(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestEvaluateChallengeAnswer(t *testing.T) {
	t.Parallel()

	challenged := func() *db.Member {
		m := db.NewMember(42, "alice", "Alice", time.Now())
		m.Verification = db.VerificationChallenged
		m.CaptchaAnswer = toNullInt64(13)
		m.CaptchaToken = "tok-1"
		return m
	}

	for _, tc := range []struct {
		name     string
		member   func() *db.Member
		answerer int64
		data     captchaCallbackData
		want     challengeOutcome
	}{
		{
			"solved",
			challenged, 42,
			captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 13},
			challengeSolved,
		},
		{
			"wrong answer",
			challenged, 42,
			captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 7},
			challengeIncorrect,
		},
		{
			"someone else pressing",
			challenged, 99,
			captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 13},
			challengeForeign,
		},
		{
			"superseded keyboard",
			challenged, 42,
			captchaCallbackData{UserID: 42, Token: "tok-0", Answer: 13},
			challengeStale,
		},
		{
			"already verified",
			func() *db.Member {
				m := challenged()
				m.Verification = db.VerificationVerified
				return m
			},
			42,
			captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 13},
			challengeAlreadyVerified,
		},
		{
			"challenge never issued",
			func() *db.Member {
				m := challenged()
				m.CaptchaToken = ""
				m.CaptchaAnswer = nullInt64()
				return m
			},
			42,
			captchaCallbackData{UserID: 42, Token: "tok-1", Answer: 13},
			challengeStale,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := evaluateChallengeAnswer(tc.member(), tc.answerer, tc.data); got != tc.want {
				t.Errorf("got outcome %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCaptchaCallbackData(t *testing.T) {
	t.Parallel()
	if !isCaptchaCallbackData("captcha;42;tok;3") {
		t.Error("captcha data not recognized")
	}
	if isCaptchaCallbackData("captchanope;42") {
		t.Error("non-captcha prefix recognized")
	}
	if isCaptchaCallbackData("") {
		t.Error("empty data recognized")
	}
}

type fakeGatekeeperStore struct {
	members  map[int64]*db.Member
	pending  map[int64]*db.PendingMessage
	upserted []int64
	logs     []*db.ModerationLog
}

func newFakeGatekeeperStore() *fakeGatekeeperStore {
	return &fakeGatekeeperStore{
		members: map[int64]*db.Member{},
		pending: map[int64]*db.PendingMessage{},
	}
}

func (f *fakeGatekeeperStore) FindMember(_ context.Context, userID int64) (*db.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeGatekeeperStore) UpsertMember(_ context.Context, member *db.Member) error {
	f.upserted = append(f.upserted, member.UserID)
	if _, ok := f.members[member.UserID]; !ok {
		copied := *member
		f.members[member.UserID] = &copied
	}
	return nil
}

func (f *fakeGatekeeperStore) SaveMember(_ context.Context, member *db.Member) error {
	copied := *member
	f.members[member.UserID] = &copied
	return nil
}

func (f *fakeGatekeeperStore) SavePendingMessage(_ context.Context, msg *db.PendingMessage) error {
	copied := *msg
	f.pending[msg.UserID] = &copied
	return nil
}

func (f *fakeGatekeeperStore) GetPendingMessage(_ context.Context, userID int64) (*db.PendingMessage, error) {
	p, ok := f.pending[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeGatekeeperStore) DeletePendingMessage(_ context.Context, userID int64) error {
	delete(f.pending, userID)
	return nil
}

func (f *fakeGatekeeperStore) AppendLog(_ context.Context, entry *db.ModerationLog) error {
	f.logs = append(f.logs, entry)
	return nil
}

func TestEnsureMemberCreatesProfileOnce(t *testing.T) {
	t.Parallel()
	store := newFakeGatekeeperStore()
	g := &Gatekeeper{store: store}
	user := &api.User{ID: 7, UserName: "bob", FirstName: "Bob"}

	first, err := g.ensureMember(context.Background(), user)
	if err != nil {
		t.Fatalf("ensureMember: %v", err)
	}
	if first.Verification != db.VerificationUnverified {
		t.Errorf("new member verification = %q, want %q", first.Verification, db.VerificationUnverified)
	}

	if _, err := g.ensureMember(context.Background(), user); err != nil {
		t.Fatalf("ensureMember second call: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Errorf("got %d upserts, want 1", len(store.upserted))
	}
}

func TestReplayPendingClearsExpiredEntry(t *testing.T) {
	t.Parallel()
	store := newFakeGatekeeperStore()
	store.pending[7] = &db.PendingMessage{
		UserID:      7,
		MessageText: "late to the party",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	g := &Gatekeeper{store: store}
	member := &db.Member{UserID: 7}

	g.replayPending(context.Background(), member, -100)
	if _, ok := store.pending[7]; ok {
		t.Error("expired pending message not cleared")
	}
}

func TestDetermineUpdateType(t *testing.T) {
	t.Parallel()
	g := &Gatekeeper{}
	group := &api.Chat{ID: -100, Type: "supergroup"}

	for _, tc := range []struct {
		name string
		u    *api.Update
		chat *api.Chat
		want updateType
	}{
		{"callback", &api.Update{CallbackQuery: &api.CallbackQuery{}}, group, updateTypeCallbackQuery},
		{"join", &api.Update{Message: &api.Message{NewChatMembers: []api.User{{ID: 1}}}}, group, updateTypeNewChatMembers},
		{"group text", &api.Update{Message: &api.Message{Text: "hi"}}, group, updateTypeGroupMessage},
		{"private text", &api.Update{Message: &api.Message{Text: "hi"}}, &api.Chat{ID: 1, Type: "private"}, updateTypeIgnore},
		{"empty", &api.Update{}, group, updateTypeIgnore},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := g.determineUpdateType(tc.u, tc.chat); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
