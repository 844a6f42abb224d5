package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// Mailer sends account notification emails.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer builds a mailer; host and from are required.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}, nil
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Message is a recorded mail; test inspection only.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MemoryMailer records messages in-process; used in tests and when no SMTP
// relay is configured.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemoryMailer initializes an empty recorder.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	m.messages = append(m.messages, Message{To: to, Subject: subject, Body: body})
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of recorded mail.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
