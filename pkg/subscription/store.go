package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store reads and writes subscriptions in the tenant database.
type Store interface {
	// ActiveSubscription returns the school's active subscription with its
	// plan modules. Returns ErrSubscriptionNotFound when there is none.
	ActiveSubscription(ctx context.Context, schoolID uuid.UUID) (*Subscription, error)

	// Activate cancels the school's current active subscription, if any, and
	// starts a new one on plan. Both happen atomically.
	Activate(ctx context.Context, schoolID uuid.UUID, planID uuid.UUID) (*Subscription, error)

	// Plan finds a plan by id or slug. Returns ErrPlanNotFound.
	Plan(ctx context.Context, ref string) (*Plan, error)

	// Plans lists every plan with its modules.
	Plans(ctx context.Context) ([]Plan, error)
}
