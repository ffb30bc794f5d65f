package filesystem

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	taskDomain "github.com/davicafu/crudlab/internal/task/domain"
)

// JSONTaskStorage es un adaptador outbound que vuelca las tareas a un fichero JSON
// (exportaciones y copias puntuales).
type JSONTaskStorage struct {
	filePath string
	mu       sync.Mutex // Mutex para evitar race conditions al leer/escribir el archivo.
}

// NewJSONTaskStorage es el constructor.
func NewJSONTaskStorage(filePath string) *JSONTaskStorage {
	return &JSONTaskStorage{
		filePath: filePath,
	}
}

// SaveAll sobrescribe el fichero con tasks. Escribe primero a un temporal y lo renombra para no
// dejar un fichero a medias.
func (s *JSONTaskStorage) SaveAll(ctx context.Context, tasks []*taskDomain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tasks == nil {
		tasks = []*taskDomain.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// FindAll recupera todas las tareas del fichero; sin fichero devuelve una lista vacía.
func (s *JSONTaskStorage) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*taskDomain.Task{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []*taskDomain.Task{}, nil
	}

	var tasks []*taskDomain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
