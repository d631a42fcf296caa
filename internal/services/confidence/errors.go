package confidence

import (
	"errors"
	"fmt"
	"time"
)

// ErrModelsNotReady is returned when the engine is scored before it has been
// initialized through NewEngine.
var ErrModelsNotReady = errors.New("confidence engine not initialized")

// CalculationError wraps an unexpected failure during scoring, carrying the
// elapsed time up to the failure. Partial results are never returned with it.
type CalculationError struct {
	Elapsed time.Duration
	Cause   error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("confidence calculation failed after %s: %v", e.Elapsed, e.Cause)
}

func (e *CalculationError) Unwrap() error { return e.Cause }
