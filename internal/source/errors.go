package source

import "fmt"

// DataSourceError is the single error type the acquisition layer surfaces.
// All transport-level failures (exhausted retries, permanent HTTP errors,
// network faults) are folded into it so callers need only one errors.As path.
// Context cancellation is NOT wrapped: ctx.Err() propagates unchanged so
// orchestration can tell an interrupt apart from a failed source.
type DataSourceError struct {
	Message string
	Status  int   // HTTP status for permanent response errors, 0 otherwise
	Err     error // underlying cause for network-level failures
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
