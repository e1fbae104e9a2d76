package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DBFunc returns the tenant database handle for ctx, e.g. tenantdb.DBFromContext.
type DBFunc func(ctx context.Context) (*gorm.DB, error)

// StaticDB always returns db. The CLI uses it outside the request pipeline.
func StaticDB(db *gorm.DB) DBFunc {
	return func(ctx context.Context) (*gorm.DB, error) {
		return db.WithContext(ctx), nil
	}
}

// GormStore implements Store over the plans, modules, plan_module and
// subscriptions tables of a tenant database.
type GormStore struct {
	db  DBFunc
	now func() time.Time
}

func NewGormStore(db DBFunc) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) ActiveSubscription(ctx context.Context, schoolID uuid.UUID) (*Subscription, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var sub Subscription
	err = db.
		Where("school_id = ? AND status = ?", schoolID, StatusActive).
		Where("ends_at IS NULL OR ends_at > ?", s.now().UTC()).
		Order("starts_at DESC").
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	if sub.Modules, err = planModules(db, sub.PlanID); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) Activate(ctx context.Context, schoolID uuid.UUID, planID uuid.UUID) (*Subscription, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := &Subscription{
		ID:       uuid.New(),
		SchoolID: schoolID,
		PlanID:   planID,
		Status:   StatusActive,
		StartsAt: now,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var plans int64
		if err := tx.Model(&Plan{}).Where("id = ?", planID).Count(&plans).Error; err != nil {
			return err
		}
		if plans == 0 {
			return ErrPlanNotFound
		}

		if err := tx.Model(&Subscription{}).
			Where("school_id = ? AND status = ?", schoolID, StatusActive).
			Updates(map[string]any{"status": StatusCancelled, "cancelled_at": now}).Error; err != nil {
			return err
		}

		return tx.Create(sub).Error
	})
	if errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	if sub.Modules, err = planModules(db, planID); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *GormStore) Plan(ctx context.Context, ref string) (*Plan, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Where("slug = ?", ref)
	if id, err := uuid.Parse(ref); err == nil {
		query = db.Where("id = ?", id)
	}

	var plan Plan
	err = query.Take(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	if plan.Modules, err = planModules(db, plan.ID); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *GormStore) Plans(ctx context.Context) ([]Plan, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var plans []Plan
	if err := db.Order("name").Find(&plans).Error; err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	for i := range plans {
		if plans[i].Modules, err = planModules(db, plans[i].ID); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func planModules(db *gorm.DB, planID uuid.UUID) ([]Module, error) {
	var names []string
	err := db.Table("plan_module").
		Joins("JOIN modules ON modules.id = plan_module.module_id").
		Where("plan_module.plan_id = ?", planID).
		Order("modules.name").
		Pluck("modules.name", &names).Error
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	modules := make([]Module, len(names))
	for i, n := range names {
		modules[i] = Module(n)
	}
	return modules, nil
}
