package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// NewOwnerCapacityRule returns the in-transaction rule that blocks any
// ownership index entry longer than the store capacity bound.
func NewOwnerCapacityRule() domain.Rule {
	return ownerCapacityRule{}
}

type ownerCapacityRule struct{}

func (ownerCapacityRule) Name() string { return "owner_capacity" }

func (ownerCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	limit := view.MaxOwned()
	res := domain.Result{}
	for _, owner := range view.ListOwners() {
		count := len(view.OwnedBy(owner))
		if count > limit {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "owner_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("account %s owns %d kitties, limit %d", owner, count, limit),
				Entity:   domain.EntityOwnership,
				EntityID: string(owner),
			})
		}
	}
	return res, nil
}
