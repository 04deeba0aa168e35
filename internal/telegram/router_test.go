package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type call struct {
	name string
	arg  string
	lat  float64
	lon  float64
}

type fakeSessions struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeSessions) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeSessions) Start(_ context.Context, _ int64) { f.record(call{name: "start"}) }
func (f *fakeSessions) Done(_ context.Context, _ int64)  { f.record(call{name: "done"}) }
func (f *fakeSessions) Help(_ context.Context, _ int64)  { f.record(call{name: "help"}) }
func (f *fakeSessions) SetTime(_ context.Context, _ int64, arg string) {
	f.record(call{name: "time", arg: arg})
}
func (f *fakeSessions) FreeText(_ context.Context, _ int64, text string) {
	f.record(call{name: "text", arg: text})
}
func (f *fakeSessions) Location(_ context.Context, _ int64, lat, lon float64) {
	f.record(call{name: "location", lat: lat, lon: lon})
}

func (f *fakeSessions) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no session calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Text: text,
		},
	}
}

func TestHandleRoutesCommands(t *testing.T) {
	cases := []struct {
		text string
		name string
		arg  string
	}{
		{"/start", "start", ""},
		{"/done", "done", ""},
		{"/help", "help", ""},
		{"/time", "time", ""},
		{"/time 7:00", "time", "7:00"},
		{"/time 8:00 PM", "time", "8:00 PM"},
		{"/time@GratitudeBot 9:00", "time", "9:00"},
		{"/DONE", "done", ""},
		{"/unknown", "text", "/unknown"},
		{"thanks for everything", "text", "thanks for everything"},
	}

	for _, c := range cases {
		sessions := &fakeSessions{}
		r := NewRouter(zap.NewNop(), sessions)

		r.handle(context.Background(), textUpdate(1, c.text))

		got := sessions.last(t)
		if got.name != c.name || got.arg != c.arg {
			t.Errorf("handle(%q) = %s(%q), want %s(%q)", c.text, got.name, got.arg, c.name, c.arg)
		}
	}
}

func TestHandleRoutesLocation(t *testing.T) {
	sessions := &fakeSessions{}
	r := NewRouter(zap.NewNop(), sessions)

	upd := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 2},
			Location: &tgbotapi.Location{Latitude: 35.68, Longitude: 139.69},
		},
	}
	r.handle(context.Background(), upd)

	got := sessions.last(t)
	if got.name != "location" || got.lat != 35.68 || got.lon != 139.69 {
		t.Fatalf("location routing got %+v", got)
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in       string
		cmd, arg string
	}{
		{"/time 7:00", "/time", "7:00"},
		{"/time", "/time", ""},
		{"/time   8:00 PM", "/time", "8:00 PM"},
		{"/time@SomeBot 9:00", "/time", "9:00"},
		{"/START", "/start", ""},
	}
	for _, c := range cases {
		cmd, arg := splitCommand(c.in)
		if cmd != c.cmd || arg != c.arg {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", c.in, cmd, arg, c.cmd, c.arg)
		}
	}
}

func TestDispatchProcessesPerUserInOrder(t *testing.T) {
	sessions := &fakeSessions{}
	r := NewRouter(zap.NewNop(), sessions)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Dispatch(ctx, textUpdate(5, "first"))
	r.Dispatch(ctx, textUpdate(5, "second"))

	deadline := time.After(2 * time.Second)
	for {
		sessions.mu.Lock()
		n := len(sessions.calls)
		sessions.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for dispatch, got %d calls", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	if sessions.calls[0].arg != "first" || sessions.calls[1].arg != "second" {
		t.Fatalf("same-user updates handled out of order: %+v", sessions.calls)
	}
}

func TestDispatchIgnoresNonMessageUpdates(t *testing.T) {
	sessions := &fakeSessions{}
	r := NewRouter(zap.NewNop(), sessions)

	r.Dispatch(context.Background(), tgbotapi.Update{})

	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	if len(sessions.calls) != 0 {
		t.Fatalf("non-message update reached the sessions: %+v", sessions.calls)
	}
}
