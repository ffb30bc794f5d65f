package application

import (
	"context"
	"time"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/user/domain"
)

// UserService añade al CRUD genérico las consultas habituales sobre usuarios.
type UserService struct {
	*sharedApp.CrudService[UserRecord, domain.User]
	now func() time.Time
}

// NewUserService constructor
func NewUserService(crud *sharedApp.CrudService[UserRecord, domain.User]) *UserService {
	return &UserService{CrudService: crud, now: time.Now}
}

// SearchUsersByName devuelve los 20 usuarios más recientes cuyo nombre contiene name.
func (s *UserService) SearchUsersByName(ctx context.Context, name string) ([]UserRecord, error) {
	req := sharedDomain.NewFilterRequest(0, 20).
		Where(domain.NameLikeCriteria{Name: name}).
		SortBy("createdAt", false)

	return s.Filter(ctx, req)
}

// FilterUsers busca por email exacto y rango de edad, ordenado por nombre.
func (s *UserService) FilterUsers(ctx context.Context, minAge, maxAge int, email string) ([]UserRecord, error) {
	req := sharedDomain.NewFilterRequest(0, 50).
		Where(
			domain.EmailCriteria{Email: email},
			domain.AgeRangeCriteria{Min: &minAge, Max: &maxAge, Now: s.now().UTC()},
		).
		SortBy("name", true)

	return s.Filter(ctx, req)
}

// ListReports devuelve los usuarios cuyo responsable se llama como managerName.
func (s *UserService) ListReports(ctx context.Context, managerName string, page, pageSize int) ([]UserRecord, error) {
	req := sharedDomain.NewFilterRequest(page, pageSize).
		Where(domain.ManagerNameCriteria{Name: managerName}).
		SortBy("name", true)

	return s.Filter(ctx, req)
}

// CountByStatus cuenta los usuarios que están en alguno de los estados.
func (s *UserService) CountByStatus(ctx context.Context, statuses ...domain.UserStatus) (int64, error) {
	req := sharedDomain.NewFilterRequest(0, 0).
		Where(domain.StatusCriteria{Statuses: statuses})

	return s.Count(ctx, req)
}
