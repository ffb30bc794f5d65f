package application

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	"github.com/davicafu/crudlab/internal/user/domain"
)

// Rules son las reglas de negocio de UserRecord que las etiquetas no pueden expresar.
func Rules(now func() time.Time) sharedApp.Rules[UserRecord] {
	return sharedApp.Rules[UserRecord]{
		{
			Message:  "birthDate must be in the past",
			Violated: func(r UserRecord) bool { return r.BirthDate != nil && r.BirthDate.After(now()) },
		},
		{
			Message:  "a user cannot be their own manager",
			Violated: func(r UserRecord) bool { return r.ID != "" && r.ManagerID == r.ID },
		},
		{
			Message:  "a new user cannot be blocked",
			Violated: func(r UserRecord) bool { return r.Status == string(domain.StatusBlocked) },
			OnCreate: true,
		},
	}
}

// Strategy normaliza el email y completa estado y fecha de alta antes de persistir.
func Strategy(now func() time.Time) sharedApp.BusinessStrategy[UserRecord, domain.User] {
	return sharedApp.StrategyFunc[UserRecord, domain.User](func(ctx context.Context, u *domain.User, r UserRecord) error {
		u.Email = domain.NormalizeEmail(u.Email)
		if u.Status == "" {
			u.Status = domain.StatusActive
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now().UTC()
		}
		return nil
	})
}

// Register da de alta validadores y estrategia del tipo user.
func Register(reg *sharedApp.Registry, v *validator.Validate, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	sharedApp.RegisterValidator(reg, domain.RecordType, sharedApp.Tag[UserRecord](v))
	sharedApp.RegisterValidator[UserRecord](reg, domain.RecordType, Rules(now))
	sharedApp.RegisterStrategy(reg, domain.RecordType, Strategy(now))
}
