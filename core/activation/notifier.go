package activation

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
)

type (
	// Invitation is what the principal receives to activate their account.
	Invitation struct {
		PrincipalID string        `json:"principal_id"`
		Kind        PrincipalKind `json:"kind"`
		Name        string        `json:"name"`
		Email       string        `json:"email"`
		SchoolName  string        `json:"school_name"`
		Token       string        `json:"-"`
		URL         string        `json:"activation_url"`
		SentAt      time.Time     `json:"sent_at"`    // UTC
		ExpiresAt   time.Time     `json:"expires_at"` // UTC
	}

	Welcome struct {
		Kind       PrincipalKind
		Name       string
		Email      string
		SchoolName string
		Template   string
	}

	// Notifier delivers activation emails. A single attempt is made; failures are returned as is.
	Notifier interface {
		SendInvitation(ctx context.Context, inv Invitation) error
		SendWelcome(ctx context.Context, w Welcome) error
	}
)

// MailNotifier sends notifications through a core.EmailService.
type MailNotifier struct {
	svc             core.EmailService
	appName         string
	frontendBaseURL string
}

var _ Notifier = (*MailNotifier)(nil)

func NewMailNotifier(svc core.EmailService, conf *core.Config) *MailNotifier {
	return &MailNotifier{svc: svc, appName: conf.AppName, frontendBaseURL: conf.FrontendBaseURL}
}

func (n *MailNotifier) SendInvitation(ctx context.Context, inv Invitation) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: inv.Name, Address: inv.Email}},
		Subject:      "Activate your " + n.appName + " account",
		TemplateName: "activation_invite",
		TemplateData: struct {
			Name          string
			Kind          PrincipalKind
			SchoolName    string
			ActivationURL string
			ExpiresAt     time.Time
		}{inv.Name, inv.Kind, inv.SchoolName, inv.URL, inv.ExpiresAt},
	}
	return errors.Wrap(n.svc.SendMessage(ctx, msg), "sending invitation")
}

func (n *MailNotifier) SendWelcome(ctx context.Context, w Welcome) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: w.Name, Address: w.Email}},
		Subject:      "Welcome to " + n.appName,
		TemplateName: w.Template,
		TemplateData: struct {
			Name       string
			Kind       PrincipalKind
			SchoolName string
			LoginURL   string
		}{w.Name, w.Kind, w.SchoolName, strings.TrimRight(n.frontendBaseURL, "/") + "/login"},
	}
	return errors.Wrap(n.svc.SendMessage(ctx, msg), "sending welcome email")
}

// Recorder observes the outcome of invitations and activations.
type Recorder interface {
	ObserveInvitation(kind PrincipalKind, err error)
	ObserveActivation(kind PrincipalKind, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveInvitation(PrincipalKind, error) {}
func (nopRecorder) ObserveActivation(PrincipalKind, error) {}

// Outcome returns a short label describing err, "ok" for nil.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch errors.Cause(err) {
	case ErrTokenNotFound:
		return "not_found"
	case ErrTokenExpired:
		return "expired"
	case ErrStudentCodeMismatch:
		return "code_mismatch"
	case ErrAlreadyActivated:
		return "already_activated"
	case ErrPrincipalNotFound:
		return "principal_not_found"
	case ErrInvitationFailed:
		return "invitation_failed"
	case ErrIdentityCreationFailed:
		return "identity_failed"
	case ErrLinkingFailed:
		return "linking_failed"
	}
	if core.IsValidationError(err) {
		return "invalid"
	}
	if _, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		return "invalid"
	}
	return "error"
}
