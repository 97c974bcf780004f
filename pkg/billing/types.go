package billing

// Provider identifies a payment provider integration.
type Provider string

const (
	ProviderPaygate      Provider = "paygate"
	ProviderLemonSqueezy Provider = "lemonsqueezy"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
	StatusPastDue   Status = "past_due"
)

// EventKind is the normalized billing event type. Each provider parser
// maps its native event names to these kinds.
type EventKind string

const (
	EventCharged       EventKind = "charged"        // initial purchase or plan change
	EventRenewed       EventKind = "renewed"        // recurring payment succeeded
	EventCancelled     EventKind = "cancelled"      // future renewal disabled, entitlement kept until expiry
	EventPaymentFailed EventKind = "payment_failed" // soft unless Terminal is set
	EventSuspended     EventKind = "suspended"      // hard stop, entitlement revoked by quota checks
	EventTerminated    EventKind = "terminated"     // provider relationship finished
	EventRefunded      EventKind = "refunded"       // money returned, reset to trial floor
	EventQuotaPurchase EventKind = "quota_purchase" // one-time message-pack top-up
)
