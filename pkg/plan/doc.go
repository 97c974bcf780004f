// Package plan defines the static plan catalog: the mapping from plan
// identifier to message quota and price, and the reverse mapping from
// provider-native product references to internal plan identifiers.
//
// The catalog is compiled in and involves no I/O. Lookups are deterministic:
// the same provider reference always resolves to the same plan, although
// several references may resolve to one plan (monthly and yearly variants
// of the same tier share a plan ID).
//
// Example:
//
//	p, err := plan.ByID(plan.IDPro)
//	if err != nil {
//		// unknown plan
//	}
//	fmt.Println(p.MessageQuota) // 3000
package plan
