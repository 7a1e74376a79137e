package utils

import (
	"context"
	"fmt"
	"time"
)

// RunWithTimeout runs fn under a deadline. When the deadline passes first the
// context handed to fn is cancelled and a timeout error is returned.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("job timed out after %v", timeout)
	}
}
