package plan

// ID identifies a plan tier.
type ID string

const (
	IDTrial      ID = "trial"
	IDStarter    ID = "starter"
	IDPro        ID = "pro"
	IDBusiness   ID = "business"
	IDEnterprise ID = "enterprise"
)

// Unlimited indicates no message quota for a plan (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Period represents the billing frequency for a paid plan.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Days returns the calendar length of one billing period.
// Provider-naive month math: 30/365 days, matching what the
// providers themselves use when they omit a renewal timestamp.
func (p Period) Days() int {
	if p == PeriodYearly {
		return 365
	}
	return 30
}

// Valid reports whether p is a known billing period.
func (p Period) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// Money represents a monetary amount in the smallest currency unit.
type Money struct {
	Amount   int64  // cents
	Currency string // ISO 4217 code
}

// Plan describes one catalog entry.
type Plan struct {
	ID           ID
	Name         string
	MessageQuota int64 // -1 = unlimited
	TrialDays    int   // only set for the trial plan
	Monthly      Money
	Yearly       Money
}

var catalog = map[ID]Plan{
	IDTrial: {
		ID:           IDTrial,
		Name:         "Trial",
		MessageQuota: 50,
		TrialDays:    14,
	},
	IDStarter: {
		ID:           IDStarter,
		Name:         "Starter",
		MessageQuota: 500,
		Monthly:      Money{Amount: 1900, Currency: "USD"},
		Yearly:       Money{Amount: 19000, Currency: "USD"},
	},
	IDPro: {
		ID:           IDPro,
		Name:         "Pro",
		MessageQuota: 3000,
		Monthly:      Money{Amount: 4900, Currency: "USD"},
		Yearly:       Money{Amount: 49000, Currency: "USD"},
	},
	IDBusiness: {
		ID:           IDBusiness,
		Name:         "Business",
		MessageQuota: 10000,
		Monthly:      Money{Amount: 9900, Currency: "USD"},
		Yearly:       Money{Amount: 99000, Currency: "USD"},
	},
	IDEnterprise: {
		ID:           IDEnterprise,
		Name:         "Enterprise",
		MessageQuota: Unlimited,
		Monthly:      Money{Amount: 29900, Currency: "USD"},
		Yearly:       Money{Amount: 299000, Currency: "USD"},
	},
}

// providerRefs maps provider-native product/variant references to plan IDs.
// Several references map to one plan (monthly and yearly checkout variants).
// Keys are matched verbatim, so provider payload parsing must not normalize case.
var providerRefs = map[string]ID{
	// paygate product codes
	"BF-STARTER-M":  IDStarter,
	"BF-STARTER-Y":  IDStarter,
	"BF-PRO-M":      IDPro,
	"BF-PRO-Y":      IDPro,
	"BF-BUSINESS-M": IDBusiness,
	"BF-BUSINESS-Y": IDBusiness,
	"BF-ENT-M":      IDEnterprise,
	"BF-ENT-Y":      IDEnterprise,

	// lemonsqueezy variant IDs
	"473211": IDStarter,
	"473212": IDStarter,
	"473221": IDPro,
	"473222": IDPro,
	"473231": IDBusiness,
	"473232": IDBusiness,
	"473241": IDEnterprise,
	"473242": IDEnterprise,
}

// refPeriods records the billing period a provider reference implies.
// Providers encode the period in the product variant rather than as a
// separate payload field, so expiry math needs this side table.
var refPeriods = map[string]Period{
	"BF-STARTER-M": PeriodMonthly, "BF-STARTER-Y": PeriodYearly,
	"BF-PRO-M": PeriodMonthly, "BF-PRO-Y": PeriodYearly,
	"BF-BUSINESS-M": PeriodMonthly, "BF-BUSINESS-Y": PeriodYearly,
	"BF-ENT-M": PeriodMonthly, "BF-ENT-Y": PeriodYearly,

	"473211": PeriodMonthly, "473212": PeriodYearly,
	"473221": PeriodMonthly, "473222": PeriodYearly,
	"473231": PeriodMonthly, "473232": PeriodYearly,
	"473241": PeriodMonthly, "473242": PeriodYearly,
}

// packRefs maps provider references for one-time message packs to the
// number of messages they add to the quota limit.
var packRefs = map[string]int64{
	// paygate product codes
	"BF-PACK-500":  500,
	"BF-PACK-2000": 2000,

	// lemonsqueezy variant IDs
	"473290": 500,
	"473291": 2000,
}

// ByID returns the catalog entry for the given plan ID.
func ByID(id ID) (Plan, error) {
	p, ok := catalog[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// ByProviderRef resolves a provider-native product or variant reference
// to its plan. Resolution is many-to-one and stable across calls.
func ByProviderRef(ref string) (Plan, error) {
	id, ok := providerRefs[ref]
	if !ok {
		return Plan{}, ErrUnknownProviderRef
	}
	return catalog[id], nil
}

// PeriodForRef returns the billing period a provider reference implies.
func PeriodForRef(ref string) (Period, bool) {
	p, ok := refPeriods[ref]
	return p, ok
}

// PackSize resolves a one-time message-pack reference to the number of
// messages it grants. Pack references never resolve through ByProviderRef.
func PackSize(ref string) (int64, bool) {
	n, ok := packRefs[ref]
	return n, ok
}

// Quota returns the message quota for a plan ID, or the trial floor
// quota when the ID is unknown. Used by the refund path, which resets
// accounts to trial-equivalent entitlement.
func Quota(id ID) int64 {
	if p, ok := catalog[id]; ok {
		return p.MessageQuota
	}
	return catalog[IDTrial].MessageQuota
}

// All returns a copy of the catalog keyed by plan ID.
func All() map[ID]Plan {
	m := make(map[ID]Plan, len(catalog))
	for k, v := range catalog {
		m[k] = v
	}
	return m
}
