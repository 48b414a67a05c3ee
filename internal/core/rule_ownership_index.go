package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// NewOwnershipIndexRule returns the rule that keeps the registry and the
// ownership index in agreement: every kitty is indexed exactly once, under
// its registry owner.
func NewOwnershipIndexRule() domain.Rule {
	return ownershipIndexRule{}
}

type ownershipIndexRule struct{}

func (ownershipIndexRule) Name() string { return "ownership_index" }

func (ownershipIndexRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	indexedBy := make(map[domain.KittyID]domain.AccountID)
	for _, owner := range view.ListOwners() {
		for _, id := range view.OwnedBy(owner) {
			if prev, dup := indexedBy[id]; dup {
				res.Violations = append(res.Violations, indexViolation(domain.EntityOwnership, string(owner),
					fmt.Sprintf("kitty %s indexed under both %s and %s", id, prev, owner)))
				continue
			}
			indexedBy[id] = owner

			kitty, ok := view.FindKitty(id)
			if !ok {
				res.Violations = append(res.Violations, indexViolation(domain.EntityOwnership, string(owner),
					fmt.Sprintf("account %s indexes missing kitty %s", owner, id)))
				continue
			}
			if kitty.Owner != owner {
				res.Violations = append(res.Violations, indexViolation(domain.EntityKitty, id.String(),
					fmt.Sprintf("kitty %s owned by %s but indexed under %s", id, kitty.Owner, owner)))
			}
		}
	}

	for _, kitty := range view.ListKitties() {
		if _, ok := indexedBy[kitty.ID]; !ok {
			res.Violations = append(res.Violations, indexViolation(domain.EntityKitty, kitty.ID.String(),
				fmt.Sprintf("kitty %s missing from ownership index of %s", kitty.ID, kitty.Owner)))
		}
	}
	return res, nil
}

func indexViolation(entity domain.EntityType, entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "ownership_index",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: entityID,
	}
}
