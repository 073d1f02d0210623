package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const wechatBaseURL = "https://qyapi.weixin.qq.com"

// WeChatWork sends messages through a group robot webhook.
type WeChatWork struct {
	// BaseURL overrides the API host. Tests point it at a local server.
	BaseURL string

	webhookKey string
	client     *http.Client
}

// NewWeChatWork builds a WeChat Work notifier for one webhook key.
func NewWeChatWork(webhookKey string) *WeChatWork {
	return &WeChatWork{
		BaseURL:    wechatBaseURL,
		webhookKey: webhookKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WeChatWork) Name() string { return "wechat" }

// Send posts the message as a text payload. The webhook reports errors in
// the response body, so a 200 status alone is not success; errcode must be
// zero too.
func (w *WeChatWork) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]any{
		"msgtype": "text",
		"text":    map[string]string{"content": message},
	})
	if err != nil {
		return fmt.Errorf("wechat payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/webhook/send?key=%s", w.BaseURL, url.QueryEscape(w.webhookKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("wechat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wechat send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wechat API status %d", resp.StatusCode)
	}

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("wechat response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wechat API error %d: %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}
