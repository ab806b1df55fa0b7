package theme

import (
	"fmt"
	"strings"
)

// InvalidSettingError is returned when a style or slot key outside its closed
// set is supplied. The configuration keeps its previous value.
type InvalidSettingError struct {
	Field string
	Value string
	Valid []string
}

func (e *InvalidSettingError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q (valid: %s)", e.Field, e.Value, strings.Join(e.Valid, ", "))
}
