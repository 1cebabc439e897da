package mail

import "github.com/xavierca1/funnelsync/internal/usecase"

type ReportEmailData struct {
	Report usecase.SyncReport
}

type ReportSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
