package utils

import (
	"context"
	"time"
)

// Retry llama a fn hasta attempts veces. La espera empieza en delay y se dobla tras cada fallo;
// tras el último intento no espera. Devuelve el último error de fn o el del contexto.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			delay *= 2
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
