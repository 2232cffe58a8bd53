package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yonetim/opsdesk/internal/notify"
)

// mockBot records every Chattable passed to Send.
type mockBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.err != nil {
		return tgbotapi.Message{}, m.err
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: 1}, nil
}

func connectedAdapter(t *testing.T, bot *mockBot) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{Client: bot})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Error("missing token should be rejected")
	}
}

func TestSendTextBuildsHTMLMessage(t *testing.T) {
	bot := &mockBot{}
	a := connectedAdapter(t, bot)

	buttons := []notify.Button{
		{Text: "الرد على العميل", CallbackData: "start_chat:s1"},
		{Text: "عرض في لوحة التحكم", URL: "https://console.example.com"},
	}
	if err := a.SendText(context.Background(), "12345", "<b>hello</b>", buttons); err != nil {
		t.Fatalf("send text: %v", err)
	}

	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", bot.sent[0])
	}
	if msg.ChatID != 12345 {
		t.Errorf("chat id = %d, want 12345", msg.ChatID)
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("parse mode = %q, want HTML", msg.ParseMode)
	}

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup is %T", msg.ReplyMarkup)
	}
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(kb.InlineKeyboard))
	}
	if *kb.InlineKeyboard[0][0].CallbackData != "start_chat:s1" {
		t.Errorf("callback = %q", *kb.InlineKeyboard[0][0].CallbackData)
	}
	if *kb.InlineKeyboard[1][0].URL != "https://console.example.com" {
		t.Errorf("url = %q", *kb.InlineKeyboard[1][0].URL)
	}
}

func TestSendTextWithoutButtons(t *testing.T) {
	bot := &mockBot{}
	a := connectedAdapter(t, bot)

	if err := a.SendText(context.Background(), "42", "plain", nil); err != nil {
		t.Fatalf("send text: %v", err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	if msg.ReplyMarkup != nil {
		t.Errorf("no buttons should mean no reply markup, got %v", msg.ReplyMarkup)
	}
}

func TestSendTextInvalidChatID(t *testing.T) {
	a := connectedAdapter(t, &mockBot{})
	if err := a.SendText(context.Background(), "not-a-number", "x", nil); err == nil {
		t.Error("non-numeric chat id should fail")
	}
}

func TestSendTextNotConnected(t *testing.T) {
	a, err := New(AdapterOpts{Client: &mockBot{}})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.SendText(context.Background(), "42", "x", nil); err == nil {
		t.Error("send before Connect should fail")
	}
}

func TestSendTextPropagatesError(t *testing.T) {
	bot := &mockBot{err: errors.New("api down")}
	a := connectedAdapter(t, bot)
	if err := a.SendText(context.Background(), "42", "x", nil); err == nil {
		t.Error("API error should be surfaced")
	}
}

func TestSendDocument(t *testing.T) {
	bot := &mockBot{}
	a := connectedAdapter(t, bot)

	if err := a.SendDocument(context.Background(), "42", "contract.pdf", []byte("pdf"), "📎 file"); err != nil {
		t.Fatalf("send document: %v", err)
	}

	doc, ok := bot.sent[0].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("sent %T, want DocumentConfig", bot.sent[0])
	}
	if doc.Caption != "📎 file" {
		t.Errorf("caption = %q", doc.Caption)
	}
	fb, ok := doc.File.(tgbotapi.FileBytes)
	if !ok {
		t.Fatalf("file is %T, want FileBytes", doc.File)
	}
	if fb.Name != "contract.pdf" || string(fb.Bytes) != "pdf" {
		t.Errorf("file = %q/%q", fb.Name, fb.Bytes)
	}
}

func TestClosedAdapterRefusesConnect(t *testing.T) {
	a, _ := New(AdapterOpts{Client: &mockBot{}})
	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Error("closed adapter should refuse to connect")
	}
}
