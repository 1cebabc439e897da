package mail

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/funnelsync/internal/usecase"
)

func NewReportSender(host string, port int, user, password, from string) *ReportSender {
	return &ReportSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// SendSyncReport mails the result of an executed run to the ops inbox.
func (s *ReportSender) SendSyncReport(to string, report usecase.SyncReport) error {
	data := ReportEmailData{Report: report}

	tmplPath := filepath.Join("templates", "sync_report.html")
	t, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to read report template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render report template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Funnel sync report: %d found, %d errors", report.Found, len(report.Errors)))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report via SMTP: %w", err)
	}

	return nil
}
