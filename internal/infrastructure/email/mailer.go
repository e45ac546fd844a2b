// Package email 提供验证邮件发送能力
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"unibook-api/internal/config"
	"unibook-api/pkg/logger"
)

const (
	defaultResendURL = "https://api.resend.com/emails"
	verificationSubj = "[Unibook]由你注册验证码"
)

// Mailer 验证码邮件发送接口
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// NewMailer 根据配置创建发送器；未配置 API Key 时仅记录日志
func NewMailer(cfg *config.EmailConfig) Mailer {
	if strings.TrimSpace(cfg.ResendAPIKey) == "" {
		return &LogMailer{}
	}
	return NewResendMailer(cfg)
}

// ResendMailer 通过 Resend HTTP API 发送邮件
type ResendMailer struct {
	apiKey     string
	url        string
	from       string
	httpClient *http.Client
}

// NewResendMailer 创建 Resend 发送器
func NewResendMailer(cfg *config.EmailConfig) *ResendMailer {
	url := strings.TrimSpace(cfg.ResendURL)
	if url == "" {
		url = defaultResendURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ResendMailer{
		apiKey: cfg.ResendAPIKey,
		url:    url,
		from:   cfg.From,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// HTTPError Resend 返回的非 2xx 响应
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 1000 {
		msg = msg[:1000] + "..."
	}
	return fmt.Sprintf("resend http %d: %s", e.StatusCode, msg)
}

// SendVerificationCode 发送验证码邮件
func (m *ResendMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: verificationSubj,
		HTML:    verificationHTML(code),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call resend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out resendResponse
	_ = json.Unmarshal(raw, &out)
	logger.Info(ctx, "verification email sent", "provider", "resend", "message_id", out.ID)
	return nil
}

func verificationHTML(code string) string {
	return fmt.Sprintf(`<p>您的验证码是：<strong>%[1]s</strong></p>
<p>Your verification code is: <strong>%[1]s</strong></p>
<p>此验证码5分钟后过期。</p>
<p>This code expires in 5 minutes.</p>`, code)
}

// LogMailer 开发环境发送器，仅输出日志
type LogMailer struct{}

// SendVerificationCode 记录验证码
func (LogMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	logger.Warn(ctx, "email api key not set, skipping real email send", "to", to, "code", code)
	return nil
}

// Dispatcher 异步发送邮件，失败只记录日志
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher 创建异步发送器
func NewDispatcher(mailer Mailer, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{mailer: mailer, timeout: timeout}
}

// SendVerificationCode 在后台发送验证码，不阻塞调用方
func (d *Dispatcher) SendVerificationCode(ctx context.Context, to, code string) {
	// 请求结束后仍需发送，保留上下文中的日志字段但脱离取消
	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(bg, d.timeout)
		defer cancel()
		if err := d.mailer.SendVerificationCode(sendCtx, to, code); err != nil {
			logger.Error(sendCtx, "failed to send verification email", err, "to", to)
		}
	}()
}

// Wait 等待所有后台发送完成
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
