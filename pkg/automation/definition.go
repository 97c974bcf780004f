package automation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TriggerKind selects the condition predicate of a definition.
type TriggerKind string

const (
	TriggerTrialExpiring        TriggerKind = "trial_expiring"
	TriggerSubscriptionExpiring TriggerKind = "subscription_expiring"
	TriggerTrialExpired         TriggerKind = "trial_expired"
	TriggerMessagesLow          TriggerKind = "messages_low"
	TriggerUserInactive         TriggerKind = "user_inactive"
)

// ActionKind selects the remediation action of a definition.
type ActionKind string

const (
	ActionSendEmail      ActionKind = "send_email"
	ActionNotifyOperator ActionKind = "notify_operator"
	ActionExtendTrial    ActionKind = "extend_trial"
	ActionAddQuota       ActionKind = "add_quota"
)

// TriggerParams carries the parameters of the chosen trigger.
// Fields not relevant to the kind are ignored.
type TriggerParams struct {
	DaysBefore   int `yaml:"days_before"`   // trial_expiring, subscription_expiring
	Percentage   int `yaml:"percentage"`    // messages_low
	DaysInactive int `yaml:"days_inactive"` // user_inactive
}

// ActionParams carries the parameters of the chosen action.
type ActionParams struct {
	Subject  string `yaml:"subject"`  // send_email
	Template string `yaml:"template"` // send_email, notify_operator
	Days     int    `yaml:"days"`     // extend_trial
	Count    int64  `yaml:"count"`    // add_quota
}

// Definition is one operator-configured automation rule. Definitions
// are created and edited by operators and read-only to the engine.
type Definition struct {
	ID            uuid.UUID     `yaml:"id"`
	Name          string        `yaml:"name"`
	Trigger       TriggerKind   `yaml:"trigger"`
	TriggerParams TriggerParams `yaml:"trigger_params"`
	Action        ActionKind    `yaml:"action"`
	ActionParams  ActionParams  `yaml:"action_params"`
	Active        bool          `yaml:"active"`
	CreatedAt     time.Time     `yaml:"created_at"`
}

// Validate checks that the definition's kinds are known and its
// parameters are usable.
func (d Definition) Validate() error {
	switch d.Trigger {
	case TriggerTrialExpiring, TriggerSubscriptionExpiring:
		if d.TriggerParams.DaysBefore <= 0 {
			return fmt.Errorf("%w: %s requires days_before > 0", ErrInvalidDefinition, d.Trigger)
		}
	case TriggerTrialExpired:
	case TriggerMessagesLow:
		if d.TriggerParams.Percentage <= 0 || d.TriggerParams.Percentage > 100 {
			return fmt.Errorf("%w: messages_low requires percentage in (0,100]", ErrInvalidDefinition)
		}
	case TriggerUserInactive:
		if d.TriggerParams.DaysInactive <= 0 {
			return fmt.Errorf("%w: user_inactive requires days_inactive > 0", ErrInvalidDefinition)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, d.Trigger)
	}

	switch d.Action {
	case ActionSendEmail:
		if d.ActionParams.Subject == "" || d.ActionParams.Template == "" {
			return fmt.Errorf("%w: send_email requires subject and template", ErrInvalidDefinition)
		}
	case ActionNotifyOperator:
		if d.ActionParams.Template == "" {
			return fmt.Errorf("%w: notify_operator requires a template", ErrInvalidDefinition)
		}
	case ActionExtendTrial:
		if d.ActionParams.Days <= 0 {
			return fmt.Errorf("%w: extend_trial requires days > 0", ErrInvalidDefinition)
		}
	case ActionAddQuota:
		if d.ActionParams.Count <= 0 {
			return fmt.Errorf("%w: add_quota requires count > 0", ErrInvalidDefinition)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, d.Action)
	}

	return nil
}

// Execution is one append-only audit row: a (definition, account)
// firing with its outcome. Rows are never mutated or deleted; their
// sole purpose is the 24-hour dedup invariant and forensics.
type Execution struct {
	ID           uuid.UUID
	DefinitionID uuid.UUID
	AccountID    uuid.UUID
	Success      bool
	Detail       string // failure detail, empty on success
	ExecutedAt   time.Time
}
