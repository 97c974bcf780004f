package automation

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/email"
	"github.com/botframe/billingcore/pkg/plan"
)

// OperatorNotifier delivers a message to the operator channel (chat,
// on-call, etc.). Delivery primitives are external collaborators; only
// the interface lives here.
type OperatorNotifier interface {
	Notify(ctx context.Context, text string) error
}

// Executor runs one action for one account. Implementations must treat
// failures as per-account: returning an error never aborts the tick.
type Executor interface {
	Execute(ctx context.Context, def Definition, acc Account) error
}

// ActionExecutor is the production Executor wiring the fixed action
// vocabulary to its collaborators.
type ActionExecutor struct {
	mailer   email.EmailSender
	operator OperatorNotifier
	subs     billing.SubscriptionStore
	now      func() time.Time
	printer  *message.Printer
}

// NewActionExecutor creates the production executor. Collaborators may
// be nil when the deployment does not use the corresponding actions;
// executing an action with a missing collaborator fails per-account.
func NewActionExecutor(mailer email.EmailSender, operator OperatorNotifier, subs billing.SubscriptionStore) *ActionExecutor {
	return &ActionExecutor{
		mailer:   mailer,
		operator: operator,
		subs:     subs,
		now:      func() time.Time { return time.Now().UTC() },
		printer:  message.NewPrinter(language.English),
	}
}

// templateData is what action templates may interpolate.
type templateData struct {
	Name       string
	Email      string
	Plan       string
	QuotaUsed  string // formatted with thousands separators
	QuotaLimit string
	ExpiresAt  string
	DaysLeft   int
}

func (e *ActionExecutor) data(acc Account) templateData {
	limit := "unlimited"
	if acc.QuotaLimit != plan.Unlimited {
		limit = e.printer.Sprintf("%d", acc.QuotaLimit)
	}
	days := int(time.Until(acc.ExpiresAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return templateData{
		Name:       acc.Name,
		Email:      acc.Email,
		Plan:       string(acc.PlanID),
		QuotaUsed:  e.printer.Sprintf("%d", acc.QuotaUsed),
		QuotaLimit: limit,
		ExpiresAt:  acc.ExpiresAt.Format("2006-01-02"),
		DaysLeft:   days,
	}
}

func render(tmpl string, data templateData) (string, error) {
	t, err := template.New("action").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Execute dispatches on the definition's action kind.
func (e *ActionExecutor) Execute(ctx context.Context, def Definition, acc Account) error {
	switch def.Action {
	case ActionSendEmail:
		return e.sendEmail(ctx, def, acc)
	case ActionNotifyOperator:
		return e.notifyOperator(ctx, def, acc)
	case ActionExtendTrial:
		return e.extendTrial(ctx, def, acc)
	case ActionAddQuota:
		return e.addQuota(ctx, def, acc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, def.Action)
}

func (e *ActionExecutor) sendEmail(ctx context.Context, def Definition, acc Account) error {
	if e.mailer == nil {
		return fmt.Errorf("%w: no email sender configured", ErrActionFailed)
	}
	data := e.data(acc)
	subject, err := render(def.ActionParams.Subject, data)
	if err != nil {
		return err
	}
	body, err := render(def.ActionParams.Template, data)
	if err != nil {
		return err
	}
	return e.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   acc.Email,
		Subject:  subject,
		BodyHTML: body,
		Tag:      "automation-" + string(def.Trigger),
	})
}

func (e *ActionExecutor) notifyOperator(ctx context.Context, def Definition, acc Account) error {
	if e.operator == nil {
		return fmt.Errorf("%w: no operator notifier configured", ErrActionFailed)
	}
	text, err := render(def.ActionParams.Template, e.data(acc))
	if err != nil {
		return err
	}
	return e.operator.Notify(ctx, text)
}

func (e *ActionExecutor) extendTrial(ctx context.Context, def Definition, acc Account) error {
	if e.subs == nil {
		return fmt.Errorf("%w: no subscription store configured", ErrActionFailed)
	}
	sub, err := e.subs.Get(ctx, acc.ID)
	if err != nil {
		return err
	}
	sub.ExpiresAt = sub.ExpiresAt.AddDate(0, 0, def.ActionParams.Days)
	sub.UpdatedAt = e.now()
	return e.subs.Save(ctx, sub)
}

func (e *ActionExecutor) addQuota(ctx context.Context, def Definition, acc Account) error {
	if e.subs == nil {
		return fmt.Errorf("%w: no subscription store configured", ErrActionFailed)
	}
	sub, err := e.subs.Get(ctx, acc.ID)
	if err != nil {
		return err
	}
	if sub.QuotaLimit == plan.Unlimited {
		return nil
	}
	sub.QuotaLimit += def.ActionParams.Count
	sub.UpdatedAt = e.now()
	return e.subs.Save(ctx, sub)
}
