package notify

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/config"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

const MailTypeRunCompleted = "run_completed"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"percent": func(x float64) float64 { return x * 100 },
}).ParseFS(templateFS, "templates/*.html"))

// Mailer 在异步任务结束后给提交人发送通知邮件
type Mailer struct {
	client      *mail.Client
	from        string
	dialTimeout time.Duration
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		return nil, err
	}

	return &Mailer{
		client:      client,
		from:        cfg.Email.From,
		dialTimeout: time.Duration(cfg.Email.SMTP.DialTimeout) * time.Second,
	}, nil
}

// RunCompletedData 从优化记录中提取邮件需要展示的字段
func RunCompletedData(run *domain.OptimizationRun) domain.RunCompletedMailData {
	data := domain.RunCompletedMailData{
		RunID:        run.ID.String(),
		DisasterType: run.DisasterType,
		Status:       string(run.Status),
		ErrorMessage: run.ErrorMessage,
	}
	if run.BestFitness != nil {
		data.BestFitness = *run.BestFitness
	}
	if run.Result != nil && len(run.Result.MejoresSoluciones) > 0 {
		summary := run.Result.MejoresSoluciones[0].Resumen
		data.Coverage = summary.Cobertura
		data.BeneficiaryPopulation = summary.PoblacionBeneficiada
	}
	return data
}

// Render 渲染邮件正文，返回主题和 HTML
func Render(msg *domain.MailMessage) (string, string, error) {
	switch msg.Type {
	case MailTypeRunCompleted:
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, "run_completed_email.html", msg.Data); err != nil {
			return "", "", err
		}
		return "物资调度优化 - 任务已结束", buf.String(), nil
	default:
		return "", "", &UnsupportedTypeError{Type: msg.Type}
	}
}

type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "不支持的邮件类型: " + e.Type
}

func (m *Mailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return err
	}
	if err := email.To(msg.To); err != nil {
		return err
	}
	email.Subject(subject)
	email.SetBodyString(mail.TypeTextHTML, body)

	ctx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()

	return m.client.DialAndSendWithContext(ctx, email)
}

func (m *Mailer) Close() error {
	return m.client.Close()
}
