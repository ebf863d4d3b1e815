// Package app gates feature access by plan and free-tier allowance.
package app

import "github.com/SarAA2003/QuickAi/app/models"

// FreeUsageLimit is how many metered calls a free user gets before being
// asked to upgrade. The limit-th call is still allowed; the next is denied.
const FreeUsageLimit = 10

const (
	msgPremiumRequired = "This feature is only available for premium subscriptions."
	msgLimitReached    = "Limit reached. Upgrade to continue."
)

type featurePolicy struct {
	RequiresPremium bool
	// FreeAllowance is the metered free-tier allowance; 0 means unmetered.
	FreeAllowance int
}

var (
	meteredPolicy = featurePolicy{FreeAllowance: FreeUsageLimit}
	premiumPolicy = featurePolicy{RequiresPremium: true}
)

type decision struct {
	Allow  bool
	Reason string
}

// checkQuota decides whether an entitlement may use a feature. Pure; no I/O.
func checkQuota(ent models.Entitlement, pol featurePolicy) decision {
	if pol.RequiresPremium && ent.Plan != models.PlanPremium {
		return decision{Reason: msgPremiumRequired}
	}
	if pol.FreeAllowance > 0 && ent.Plan != models.PlanPremium && ent.FreeUsage >= pol.FreeAllowance {
		return decision{Reason: msgLimitReached}
	}
	return decision{Allow: true}
}
