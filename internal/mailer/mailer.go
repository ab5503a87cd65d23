package mailer

import (
	"fmt"
	"net/smtp"
)

// Mailer отправляет письма через SMTP с PLAIN авторизацией.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// New создаёт SMTP-отправитель.
func New(host, port, user, pass, from string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send отправляет письмо одному получателю. Вызов синхронный: либо
// письмо принято сервером, либо возвращается терминальная ошибка.
func (m *Mailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body + "\r\n")

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("mailer: не удалось отправить письмо: %w", err)
	}
	return nil
}
