package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/stretchr/testify/require"
)

func TestRender_AllKinds(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindRegistration, KindAccountCreated, KindTempPassword, KindDeleteProfile} {
		subject, body, err := Render(k, Data{Name: "Ann", Link: "http://web/x?token=t", Password: "Pw3xYz7k"})
		require.NoError(t, err, k)
		require.NotEmpty(t, subject)
		require.Contains(t, body, "Hello Ann")
	}
}

func TestRender_EscapesInput(t *testing.T) {
	t.Parallel()

	_, body, err := Render(KindRegistration, Data{Name: "<script>x</script>", Link: "http://web"})
	require.NoError(t, err)
	require.NotContains(t, body, "<script>")
}

func TestRender_PasswordOnlyWhereExpected(t *testing.T) {
	t.Parallel()

	_, body, err := Render(KindTempPassword, Data{Name: "Ann", Password: "Secret12"})
	require.NoError(t, err)
	require.Contains(t, body, "Secret12")

	_, body, err = Render(KindDeleteProfile, Data{Name: "Ann", Password: "Secret12"})
	require.NoError(t, err)
	require.NotContains(t, body, "Secret12")
}

func TestRender_UnknownKind(t *testing.T) {
	t.Parallel()

	_, _, err := Render("nope", Data{})
	require.Error(t, err)
}

func TestLog_MasksRecipient(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := log.Into(context.Background(), lg)

	require.NoError(t, Log{}.Send(ctx, "annabel@example.com", "Hi", "<p>secret body</p>"))
	require.Contains(t, buf.String(), "an***@example.com")
	require.NotContains(t, buf.String(), "secret body")
}

func TestNewSMTP_BuildsClient(t *testing.T) {
	t.Parallel()

	s, err := NewSMTP(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "no-reply@example.com", TLS: true})
	require.NoError(t, err)
	require.NotNil(t, s)
}
