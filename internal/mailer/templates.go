package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind: тип служебного письма.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAccountCreated Kind = "account_created"
	KindTempPassword   Kind = "temp_password"
	KindDeleteProfile  Kind = "delete_profile"
)

// Data: переменные шаблона.
type Data struct {
	Name     string
	Link     string
	Password string
}

type letter struct {
	subject string
	tmpl    *template.Template
}

const layout = `<!doctype html><html><body style="font-family:sans-serif">
<p>Hello {{.Name}},</p>
{{template "content" .}}
<p>If you did not expect this e-mail, you can ignore it.</p>
</body></html>`

func mustLetter(subject, content string) letter {
	t := template.Must(template.New("layout").Parse(layout))
	template.Must(t.New("content").Parse(content))

	return letter{subject: subject, tmpl: t}
}

var letters = map[Kind]letter{
	KindRegistration: mustLetter("Activate your account", `
<p>Please confirm your e-mail address to activate your account.</p>
<p><a href="{{.Link}}">Activate account</a></p>`),
	KindAccountCreated: mustLetter("Your account has been created", `
<p>An account has been created for you. Your temporary password is <b>{{.Password}}</b>.</p>
<p>Activate the account first, then sign in and change the password.</p>
<p><a href="{{.Link}}">Activate account</a></p>`),
	KindTempPassword: mustLetter("Your temporary password", `
<p>Your password has been reset. Temporary password: <b>{{.Password}}</b>.</p>
<p>You will be asked to change it after signing in: <a href="{{.Link}}">sign in</a>.</p>`),
	KindDeleteProfile: mustLetter("Confirm profile deletion", `
<p>We received a request to delete your profile. This cannot be undone.</p>
<p><a href="{{.Link}}">Confirm deletion</a></p>`),
}

// Render собирает тему и HTML-тело письма.
func Render(kind Kind, data Data) (subject, body string, err error) {
	const op = "mailer.Render"

	l, ok := letters[kind]
	if !ok {
		return "", "", fmt.Errorf("%s: unknown letter %q", op, kind)
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return l.subject, buf.String(), nil
}
