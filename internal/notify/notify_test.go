package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logdog-io/logdog/internal/config"
	"github.com/logdog-io/logdog/internal/engine"
)

func TestFormatMessage_Timeout(t *testing.T) {
	msg := FormatMessage(engine.Event{
		Kind:        engine.KindTimeout,
		Rule:        "Simple_Task",
		Node:        "StartTask",
		Description: "timed out waiting for one of: EndTask",
		ElapsedMS:   5200,
	})

	assert.Equal(t,
		"WATCHDOG STATE TIMEOUT\n"+
			"\nRule: Simple_Task"+
			"\nNode: StartTask"+
			"\nElapsed Time: 5200ms"+
			"\nDescription: timed out waiting for one of: EndTask",
		msg)
}

func TestFormatMessage_EntryOmitsElapsed(t *testing.T) {
	msg := FormatMessage(engine.Event{
		Kind: engine.KindEntryDetected,
		Rule: "Restart",
		Node: "TaskEntry",
	})

	assert.Contains(t, msg, "WATCHDOG ENTRY NODE DETECTED")
	assert.NotContains(t, msg, "Elapsed Time")
}

func TestTelegram_Send(t *testing.T) {
	var gotPath, gotChatID, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("bot-token", "chat-42")
	tg.BaseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "chat-42", gotChatID)
	assert.Equal(t, "hello", gotText)
}

func TestTelegram_SendNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tg := NewTelegram("bad-token", "chat-42")
	tg.BaseURL = srv.URL

	err := tg.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestWeChatWork_Send(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	wc := NewWeChatWork("webhook-key")
	wc.BaseURL = srv.URL

	require.NoError(t, wc.Send(context.Background(), "alert text"))
	assert.Equal(t, "webhook-key", gotKey)
	assert.Equal(t, "text", gotBody["msgtype"])
	assert.Equal(t, map[string]any{"content": "alert text"}, gotBody["text"])
}

func TestWeChatWork_SendErrcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The webhook reports failures with a 200 status.
		w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`))
	}))
	defer srv.Close()

	wc := NewWeChatWork("stale-key")
	wc.BaseURL = srv.URL

	err := wc.Send(context.Background(), "alert text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "93000")
}

// fakeNotifier records sends and optionally fails them.
type fakeNotifier struct {
	name string
	err  error

	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func TestDispatcher_FilterSuppresses(t *testing.T) {
	fake := &fakeNotifier{name: "telegram"}
	d := NewDispatcherWith([]string{config.NotifyTimeout}, fake)

	d.HandleEvent(engine.Event{Kind: engine.KindStateActivated, Node: "StartTask"})
	d.HandleEvent(engine.Event{Kind: engine.KindEngineLog, Node: "StartTask"})
	assert.Empty(t, fake.sent())

	d.HandleEvent(engine.Event{Kind: engine.KindTimeout, Node: "StartTask"})
	require.Len(t, fake.sent(), 1)
	assert.Contains(t, fake.sent()[0], "WATCHDOG STATE TIMEOUT")
}

func TestDispatcher_FallbackOnFailure(t *testing.T) {
	broken := &fakeNotifier{name: "telegram", err: errors.New("api unreachable")}
	backup := &fakeNotifier{name: "wechat"}
	d := NewDispatcherWith([]string{config.NotifyTimeout}, broken, backup)

	d.HandleEvent(engine.Event{Kind: engine.KindTimeout, Node: "StartTask"})

	assert.Empty(t, broken.sent())
	require.Len(t, backup.sent(), 1)
}

func TestNewDispatcher_DefaultPlatformFirst(t *testing.T) {
	cfg := &config.Config{
		Notification: config.Notification{
			BotToken:        "tok",
			ChatID:          "chat",
			WebhookKey:      "key",
			DefaultNotifier: "wechat",
		},
	}

	d := NewDispatcher(cfg)
	assert.True(t, d.Available())
	assert.Equal(t, []string{"wechat", "telegram"}, d.Names())
}

func TestNewDispatcher_NothingConfigured(t *testing.T) {
	d := NewDispatcher(&config.Config{})
	assert.False(t, d.Available())

	// Inert dispatcher must not panic.
	d.HandleEvent(engine.Event{Kind: engine.KindTimeout, Node: "StartTask"})
}
