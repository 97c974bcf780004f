// Package billing converts payment-provider webhook notifications into
// authoritative subscription state.
//
// Inbound notifications are verified (per-provider signature schemes),
// parsed into a normalized Event, deduplicated against a persistent event
// log keyed by provider + provider-native event ID, and folded into the
// subscription record by a pure reducer (Apply). The reducer assigns
// absolute target values for every field, so replaying a delivered event
// is a no-op beyond the first application. The one inherently
// non-idempotent transition, message-pack quota top-ups, is guarded by a
// processed-purchase ledger: the purchase ID is reserved with an
// insert-if-absent before the quota increment is applied.
//
// Two providers are supported:
//
//   - paygate: form-encoded IPN payloads carrying two independent proofs
//     (a keyed hash over identifying fields and an HMAC signature over a
//     canonical string), plus a source-IP allow-list.
//   - lemonsqueezy: JSON payloads with a meta.event_name discriminator,
//     authenticated by an HMAC-SHA256 signature over the raw body.
//
// The Service type ties verification-independent steps together: account
// resolution by correlation identifier, event-log dedup, the purchase
// guard, reduction, and persistence. HTTP handlers live in
// modules/billing and call Service.Ingest after provider-specific
// verification and parsing.
package billing
