package billing

import "errors"

var (
	ErrAccountNotFound      = errors.New("billing: no account matches the event correlation identifiers")
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrNoSubscription       = errors.New("billing: event cannot be applied without a subscription record")
	ErrUnknownEventKind     = errors.New("billing: unknown billing event kind")
	ErrUnknownPlanRef       = errors.New("billing: event plan reference does not resolve to a catalog plan")

	ErrMissingSecret       = errors.New("billing: webhook secret is not configured")
	ErrSignatureMismatch   = errors.New("billing: webhook signature verification failed")
	ErrSourceNotAllowed    = errors.New("billing: webhook source address is not allow-listed")
	ErrMalformedPayload    = errors.New("billing: malformed webhook payload")
	ErrMissingCorrelation  = errors.New("billing: event carries no correlation identifiers")
	ErrNoProviderRelation  = errors.New("billing: account has no correlation with the provider")
	ErrProviderUnavailable = errors.New("billing: provider API request failed")
)
