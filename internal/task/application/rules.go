package application

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	"github.com/davicafu/crudlab/internal/task/domain"
)

func Rules() sharedApp.Rules[TaskRecord] {
	return sharedApp.Rules[TaskRecord]{
		{
			Message:  "a new task must be pending",
			Violated: func(r TaskRecord) bool { return r.Status != "" && r.Status != string(domain.TaskPending) },
			OnCreate: true,
		},
		{
			Message:  "a completed task needs an assignee",
			Violated: func(r TaskRecord) bool { return r.Status == string(domain.TaskCompleted) && r.AssigneeID == "" },
		},
	}
}

// Strategy: estado pending por defecto; updatedAt siempre refleja la última escritura.
func Strategy(now func() time.Time) sharedApp.BusinessStrategy[TaskRecord, domain.Task] {
	return sharedApp.StrategyFunc[TaskRecord, domain.Task](func(ctx context.Context, t *domain.Task, r TaskRecord) error {
		ts := now().UTC()
		if t.Status == "" {
			t.Status = domain.TaskPending
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = ts
		}
		t.UpdatedAt = ts
		return nil
	})
}

// Register da de alta validadores y estrategia del tipo task.
func Register(reg *sharedApp.Registry, v *validator.Validate, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	sharedApp.RegisterValidator(reg, domain.RecordType, sharedApp.Tag[TaskRecord](v))
	sharedApp.RegisterValidator[TaskRecord](reg, domain.RecordType, Rules())
	sharedApp.RegisterStrategy(reg, domain.RecordType, Strategy(now))
}
