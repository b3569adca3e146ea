package sender

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"restaurant-fulfillment/internal/config"
)

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host not set")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address not set")
	}
	s := &SMTPSender{
		addr: cfg.Host + ":" + strconv.Itoa(cfg.Port),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	msg := []byte(
		"From: " + s.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)
	if err := s.send(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}
	now := time.Now()
	return SendResult{MessageID: fmt.Sprintf("smtp-%d", now.UnixNano()), SentAt: now}, nil
}
