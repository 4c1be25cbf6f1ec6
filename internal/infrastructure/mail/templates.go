package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

//go:embed templates
var templateFS embed.FS

var subjects = map[domain.Language]map[domain.NotificationKind]string{
	domain.LanguageEnglish: {
		domain.NotifyInvitation:         "Welcome to AInterviewer",
		domain.NotifyCreatedAccount:     "Created new account",
		domain.NotifyReactivatedAccount: "{{.user_nickname}}, your account has been reactivated",
		domain.NotifyForgotPassword:     "Change password",
		domain.NotifyChangedPassword:    "Your password has changed",
		domain.NotifyPasswordExpired:    "Expired password",
		domain.NotifyPasswordNearExpiry: "Password near to expire",
		domain.NotifyMessageToUser:      "AInterviewer",
	},
	domain.LanguageSpanish: {
		domain.NotifyInvitation:         "Bienvenid@ a AInterviewer",
		domain.NotifyCreatedAccount:     "Creada nueva cuenta",
		domain.NotifyReactivatedAccount: "{{.user_nickname}}, tu cuenta ha sido reactivada",
		domain.NotifyForgotPassword:     "Cambiar contraseña",
		domain.NotifyChangedPassword:    "Tu contraseña ha cambiado",
		domain.NotifyPasswordExpired:    "Contraseña vencida",
		domain.NotifyPasswordNearExpiry: "Contraseña cerca de vencerse",
		domain.NotifyMessageToUser:      "AInterviewer",
	},
}

var localeDirs = map[domain.Language]string{
	domain.LanguageEnglish: "en",
	domain.LanguageSpanish: "es",
}

type templateKey struct {
	lang domain.Language
	kind domain.NotificationKind
}

// Renderer turns notifications into subject and HTML body. Templates are
// parsed once at construction.
type Renderer struct {
	webUIPath string
	bodies    map[templateKey]*htmpl.Template
	subjects  map[templateKey]*texttpl.Template
}

// NewRenderer parses every template for every supported language. Links in
// the bodies point to webUIPath.
func NewRenderer(webUIPath string) (*Renderer, error) {
	r := &Renderer{
		webUIPath: strings.TrimRight(webUIPath, "/"),
		bodies:    make(map[templateKey]*htmpl.Template),
		subjects:  make(map[templateKey]*texttpl.Template),
	}
	for lang, dir := range localeDirs {
		for kind, subject := range subjects[lang] {
			key := templateKey{lang: lang, kind: kind}

			body, err := htmpl.New("layout.html").Option("missingkey=zero").ParseFS(templateFS,
				"templates/"+dir+"/layout.html",
				"templates/"+dir+"/"+string(kind)+".html")
			if err != nil {
				return nil, fmt.Errorf("parse %s/%s: %w", dir, kind, err)
			}
			r.bodies[key] = body

			subj, err := texttpl.New(string(kind)).Option("missingkey=zero").Parse(subject)
			if err != nil {
				return nil, fmt.Errorf("parse subject %s/%s: %w", dir, kind, err)
			}
			r.subjects[key] = subj
		}
	}
	return r, nil
}

// Render returns the subject and HTML body for n. A subject set on the
// notification overrides the template subject. Unknown languages fall back
// to Spanish.
func (r *Renderer) Render(n domain.Notification) (string, string, error) {
	lang := n.Language
	if !lang.Valid() {
		lang = domain.LanguageSpanish
	}
	key := templateKey{lang: lang, kind: n.Kind}
	body, ok := r.bodies[key]
	if !ok {
		return "", "", fmt.Errorf("no template for %q", n.Kind)
	}

	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data["web_ui_path"] = r.webUIPath

	subject := n.Subject
	if subject == "" {
		var sb strings.Builder
		if err := r.subjects[key].Execute(&sb, data); err != nil {
			return "", "", fmt.Errorf("render subject %s: %w", n.Kind, err)
		}
		subject = sb.String()
	}

	var html bytes.Buffer
	if err := body.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Kind, err)
	}
	return subject, html.String(), nil
}
