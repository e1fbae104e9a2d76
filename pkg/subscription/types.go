package subscription

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Module is a feature area a plan may include.
type Module string

const (
	ModuleCBT                  Module = "cbt"
	ModuleFeeManagement        Module = "fee_management"
	ModuleAttendanceManagement Module = "attendance_management"
	ModuleGrading              Module = "grading"
	ModuleMessaging            Module = "messaging"
	ModuleLibrary              Module = "library"
	ModuleTimetable            Module = "timetable"
	ModuleReportCards          Module = "report_cards"
)

// KnownModules lists every module a route can be gated on.
var KnownModules = []Module{
	ModuleCBT,
	ModuleFeeManagement,
	ModuleAttendanceManagement,
	ModuleGrading,
	ModuleMessaging,
	ModuleLibrary,
	ModuleTimetable,
	ModuleReportCards,
}

func (m Module) Valid() bool {
	return slices.Contains(KnownModules, m)
}

// Status is the state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Plan is a purchasable bundle of modules.
type Plan struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Slug      string    `gorm:"size:64;uniqueIndex"`
	Name      string    `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Modules []Module `gorm:"-"`
}

// Includes reports whether module is part of the plan.
func (p *Plan) Includes(module Module) bool {
	return p != nil && slices.Contains(p.Modules, module)
}

// Subscription ties a school to a plan for a period of time.
// A school has at most one active subscription.
type Subscription struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	SchoolID    uuid.UUID `gorm:"type:char(36);index"`
	PlanID      uuid.UUID `gorm:"type:char(36)"`
	Status      Status    `gorm:"size:16"`
	StartsAt    time.Time
	EndsAt      *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Modules is the module set of the subscribed plan.
	Modules []Module `gorm:"-"`
}

// InForceAt reports whether the subscription is active and not past its end.
func (s *Subscription) InForceAt(now time.Time) bool {
	if s == nil || s.Status != StatusActive {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.After(now)
}

// Includes reports whether module is part of the subscribed plan.
func (s *Subscription) Includes(module Module) bool {
	return s != nil && slices.Contains(s.Modules, module)
}
