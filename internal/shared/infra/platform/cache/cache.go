package cache

import (
	"context"
	"fmt"
)

// Cache es una caché clave-valor que serializa los valores a JSON.
type Cache interface {
	// Get rellena dest (puntero). (true, nil) en un hit, (false, nil) en un miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set guarda el valor con un TTL en segundos; 0 usa el TTL por defecto del adaptador.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	Delete(ctx context.Context, key string) error
}

// KeyByID forma la clave de un registro: "<tipo>:id:<id>".
func KeyByID(recordType, id string) string {
	return fmt.Sprintf("%s:id:%s", recordType, id)
}
