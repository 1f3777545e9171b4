package connection

import (
	"errors"
	"fmt"
)

// ErrDefaultAliasMissing is returned by Client when verification is
// requested and the default alias does not exist yet.
var ErrDefaultAliasMissing = errors.New("default alias does not exist")

// ConfigurationError reports a missing or invalid connection setting.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("search configuration error: %s: %s", e.Setting, e.Message)
}
