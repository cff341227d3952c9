package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/dozo/internal/domain"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var templateFuncs = map[string]any{
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
	"shortDate": func(d *civil.Date) string {
		if d == nil {
			return ""
		}
		return d.In(time.UTC).Format("Jan 02")
	},
}

// templateData is the value every template is executed against.
type templateData struct {
	AppURL    string
	User      *domain.User
	Task      *domain.Task
	Digest    *domain.Digest
	Due       string
	Today     string
	Timestamp string
}

type kindTemplates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func loadTemplates() (map[domain.NotificationKind]kindTemplates, error) {
	set := make(map[domain.NotificationKind]kindTemplates, len(domain.NotificationKinds))
	for _, kind := range domain.NotificationKinds {
		html, err := htmltemplate.New("layout.html").
			Funcs(htmltemplate.FuncMap(templateFuncs)).
			ParseFS(templateFS, "templates/layout.html", "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s html template: %w", kind, err)
		}
		text, err := texttemplate.New(string(kind) + ".txt").
			Funcs(texttemplate.FuncMap(templateFuncs)).
			ParseFS(templateFS, "templates/"+string(kind)+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s text template: %w", kind, err)
		}
		set[kind] = kindTemplates{html: html, text: text}
	}
	return set, nil
}

func (k kindTemplates) render(data templateData) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := k.html.ExecuteTemplate(&hb, "layout", data); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	if err := k.text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}
