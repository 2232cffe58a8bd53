package slack

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/yonetim/opsdesk/internal/notify"
)

// mockClient records calls and fails on command.
type mockClient struct {
	authErr    error
	postErr    error
	uploadErr  error
	posted     []string // channel IDs
	uploaded   []slackapi.FileUploadParameters
	postCalls  int
	rateLimits int // fail this many posts with a rate limit first
}

func (m *mockClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	return &slackapi.AuthTestResponse{User: "opsdesk"}, nil
}

func (m *mockClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.postCalls++
	if m.rateLimits > 0 {
		m.rateLimits--
		return "", "", &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	}
	if m.postErr != nil {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, channelID)
	return channelID, "123.456", nil
}

func (m *mockClient) UploadFile(params slackapi.FileUploadParameters) (*slackapi.File, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploaded = append(m.uploaded, params)
	return &slackapi.File{ID: "F123"}, nil
}

func connectedAdapter(t *testing.T, c *mockClient) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{Client: c})
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

func TestConnectAuthFailure(t *testing.T) {
	a, _ := New(AdapterOpts{Client: &mockClient{authErr: errors.New("invalid_auth")}})
	if err := a.Connect(context.Background()); err == nil {
		t.Error("auth failure should surface")
	}
}

func TestSendText(t *testing.T) {
	c := &mockClient{}
	a := connectedAdapter(t, c)

	if err := a.SendText(context.Background(), "C123", "hello", nil); err != nil {
		t.Fatalf("send text: %v", err)
	}
	if len(c.posted) != 1 || c.posted[0] != "C123" {
		t.Errorf("posted to %v, want [C123]", c.posted)
	}
}

func TestSendTextNotConnected(t *testing.T) {
	a, _ := New(AdapterOpts{Client: &mockClient{}})
	if err := a.SendText(context.Background(), "C123", "x", nil); err == nil {
		t.Error("send before Connect should fail")
	}
}

func TestSendTextRetriesRateLimit(t *testing.T) {
	c := &mockClient{rateLimits: 2}
	a := connectedAdapter(t, c)

	if err := a.SendText(context.Background(), "C123", "hello", nil); err != nil {
		t.Fatalf("rate-limited send should eventually succeed: %v", err)
	}
	if c.postCalls != 3 {
		t.Errorf("post calls = %d, want 3", c.postCalls)
	}
}

func TestSendTextGivesUpAfterMaxRetries(t *testing.T) {
	c := &mockClient{rateLimits: maxRetries + 5}
	a := connectedAdapter(t, c)

	if err := a.SendText(context.Background(), "C123", "hello", nil); err == nil {
		t.Error("persistent rate limiting should surface an error")
	}
	if c.postCalls != maxRetries+1 {
		t.Errorf("post calls = %d, want %d", c.postCalls, maxRetries+1)
	}
}

func TestSendTextNonRateLimitErrorNoRetry(t *testing.T) {
	c := &mockClient{postErr: errors.New("channel_not_found")}
	a := connectedAdapter(t, c)

	if err := a.SendText(context.Background(), "C123", "hello", nil); err == nil {
		t.Error("API error should surface")
	}
	if c.postCalls != 1 {
		t.Errorf("post calls = %d, want 1 (no retry)", c.postCalls)
	}
}

func TestSendDocument(t *testing.T) {
	c := &mockClient{}
	a := connectedAdapter(t, c)

	if err := a.SendDocument(context.Background(), "C123", "contract.pdf", []byte("pdf"), "file"); err != nil {
		t.Fatalf("send document: %v", err)
	}
	if len(c.uploaded) != 1 {
		t.Fatalf("uploads = %d, want 1", len(c.uploaded))
	}
	up := c.uploaded[0]
	if len(up.Channels) != 1 || up.Channels[0] != "C123" || up.Filename != "contract.pdf" || up.Content != "pdf" {
		t.Errorf("upload params = %+v", up)
	}
}

func TestButtonAttachment(t *testing.T) {
	buttons := []notify.Button{
		{Text: "Reply", CallbackData: "start_chat:s1"}, // dropped, no URL
		{Text: "Open Console", URL: "https://console.example.com"},
	}
	att := buttonAttachment(buttons)
	if att == nil {
		t.Fatal("url buttons should produce an attachment")
	}
	if !strings.Contains(att.Text, "<https://console.example.com|Open Console>") {
		t.Errorf("attachment text = %q", att.Text)
	}
	if strings.Contains(att.Text, "start_chat") {
		t.Error("callback-only buttons must be dropped")
	}

	if buttonAttachment([]notify.Button{{Text: "Reply", CallbackData: "x"}}) != nil {
		t.Error("callback-only buttons alone should produce no attachment")
	}
}
