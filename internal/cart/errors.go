package cart

import "fmt"

// ValidationError reports bad input scoped to a single field. Callers
// can recover by fixing the field and retrying.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
