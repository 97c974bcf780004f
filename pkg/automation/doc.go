// Package automation implements the condition-triggered remediation
// engine: a periodic scan of the account population that evaluates
// operator-configured trigger predicates (trial expiring, quota low,
// inactivity) and fires the configured action at most once per account
// per rolling 24-hour window.
//
// The engine does not schedule itself; an external scheduler invokes
// Tick. Ticks are single-flight: a tick that runs long is never
// preempted, and a second Tick while one is running returns
// ErrTickInProgress. Each tick loads the account snapshot once and
// shares it across all definitions evaluated that tick.
//
// De-duplication is layered. The durable layer is the execution audit
// table, checked with a 24-hour lookback; every firing is recorded
// there whether the action succeeded or failed, so a permanently
// failing recipient is not retried every tick. When a Reserver (redis)
// is configured, an atomic reservation closes the check-then-act race
// between overlapping schedulers; without it the lookback is accepted
// as best-effort.
package automation
