package entity

import (
	"fmt"
	"strings"
)

// PlanTable maps processor price ids to internal plans. It is built once at
// startup and only read afterwards.
type PlanTable struct {
	byPrice map[string]Plan
	byPlan  map[Plan]string
}

// PlanMapping is one configured price.
type PlanMapping struct {
	PriceID string `yaml:"price_id"`
	Plan    Plan   `yaml:"plan"`
}

// NewPlanTable validates the mappings. The first price listed for a plan is
// the one used when a client asks for checkout by plan name.
func NewPlanTable(mappings []PlanMapping) (*PlanTable, error) {
	t := &PlanTable{
		byPrice: make(map[string]Plan, len(mappings)),
		byPlan:  make(map[Plan]string, len(mappings)),
	}
	for _, m := range mappings {
		price := strings.TrimSpace(m.PriceID)
		if price == "" {
			return nil, fmt.Errorf("plan mapping for %q has empty price id", m.Plan)
		}
		if !m.Plan.Valid() || m.Plan == PlanFree {
			return nil, fmt.Errorf("price %s maps to unknown plan %q", price, m.Plan)
		}
		if _, dup := t.byPrice[price]; dup {
			return nil, fmt.Errorf("price %s mapped twice", price)
		}
		t.byPrice[price] = m.Plan
		if _, ok := t.byPlan[m.Plan]; !ok {
			t.byPlan[m.Plan] = price
		}
	}
	return t, nil
}

// PlanForPrice resolves a processor price id.
func (t *PlanTable) PlanForPrice(priceID string) (Plan, bool) {
	p, ok := t.byPrice[priceID]
	return p, ok
}

// ResolveReference accepts either a configured price id or a plan name and
// returns the price to bill.
func (t *PlanTable) ResolveReference(ref string) (priceID string, plan Plan, ok bool) {
	ref = strings.TrimSpace(ref)
	if p, found := t.byPrice[ref]; found {
		return ref, p, true
	}
	if price, found := t.byPlan[Plan(strings.ToLower(ref))]; found {
		return price, Plan(strings.ToLower(ref)), true
	}
	return "", "", false
}

// Len is the number of configured prices.
func (t *PlanTable) Len() int {
	return len(t.byPrice)
}
