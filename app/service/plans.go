package service

import (
	"strings"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// Prices in whole units of the configured currency.
var planPrices = map[string]int64{
	entity.PlanPremium: 50000,
	entity.PlanPro:     150000,
}

func normalizePlan(plan string) string {
	return strings.ToLower(strings.TrimSpace(plan))
}

// PlanPrice returns the price of a purchasable plan. The free plan is not
// purchasable.
func PlanPrice(plan string) (int64, bool) {
	price, ok := planPrices[normalizePlan(plan)]
	return price, ok
}

func IsPurchasablePlan(plan string) bool {
	_, ok := PlanPrice(plan)
	return ok
}
