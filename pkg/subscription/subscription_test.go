package subscription_test

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/subscription"
	"github.com/samschool/tenancy/pkg/tenant"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ActiveSubscription(ctx context.Context, schoolID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockStore) Activate(ctx context.Context, schoolID, planID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, schoolID, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockStore) Plan(ctx context.Context, ref string) (*subscription.Plan, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Plan), args.Error(1)
}

func (m *mockStore) Plans(ctx context.Context) ([]subscription.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Plan), args.Error(1)
}

type mockSchools struct {
	mock.Mock
}

func (m *mockSchools) SchoolByID(ctx context.Context, id uuid.UUID) (*tenant.School, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.School), args.Error(1)
}

func (m *mockSchools) SchoolByTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.School, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.School), args.Error(1)
}

func createTestTenant() (*tenant.Tenant, *tenant.School) {
	t := &tenant.Tenant{
		ID:        uuid.New(),
		Name:      "Acme Academy",
		Subdomain: "acme",
		Status:    tenant.StatusActive,
		Database:  tenant.DatabaseParams{Driver: "mysql", Name: "tenant_acme"},
	}
	return t, &tenant.School{ID: uuid.New(), TenantID: t.ID, Name: "Acme Academy"}
}

func activeSubscription(schoolID uuid.UUID, modules ...subscription.Module) *subscription.Subscription {
	return &subscription.Subscription{
		ID:       uuid.New(),
		SchoolID: schoolID,
		PlanID:   uuid.New(),
		Status:   subscription.StatusActive,
		StartsAt: time.Now().Add(-24 * time.Hour),
		Modules:  modules,
	}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelDebug)), buf
}
