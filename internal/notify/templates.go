package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/museum-tix/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	KindBooked    = "booked"
	KindCancelled = "cancelled"
)

var subjects = map[string]string{
	KindBooked:    "Your museum ticket is confirmed",
	KindCancelled: "Your museum ticket was cancelled",
}

// Templates renders customer emails.
type Templates struct {
	tpl         *template.Template
	frontendURL string
}

func NewTemplates(frontendURL string) (*Templates, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"money": func(v any) string {
			switch d := v.(type) {
			case decimal.Decimal:
				return d.StringFixed(2)
			case *decimal.Decimal:
				if d == nil {
					return "0.00"
				}
				return d.StringFixed(2)
			}
			return fmt.Sprint(v)
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("notify.NewTemplates: %w", err)
	}

	return &Templates{tpl: tpl, frontendURL: strings.TrimRight(frontendURL, "/")}, nil
}

// Render builds the email of the given kind for t.
func (tp *Templates) Render(kind string, t domain.Ticket) (Message, error) {
	const op = "notify.Templates.Render"

	subject, ok := subjects[kind]
	if !ok {
		return Message{}, fmt.Errorf("%s: unknown kind %q", op, kind)
	}

	data := struct {
		Ticket    domain.Ticket
		TicketURL string
	}{Ticket: t}
	if tp.frontendURL != "" {
		data.TicketURL = tp.frontendURL + "/my-tickets"
	}

	var buf bytes.Buffer
	if err := tp.tpl.ExecuteTemplate(&buf, kind+".html", data); err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return Message{To: t.Email, Subject: subject, HTML: buf.String()}, nil
}
