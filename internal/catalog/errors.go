package catalog

import "fmt"

// ConfigurationError reports an empty or malformed role catalog. It is fatal at
// startup: no role can be scored without a catalog.
type ConfigurationError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "catalog configuration: " + e.Reason
	if e.Source != "" {
		msg = fmt.Sprintf("catalog configuration (%s): %s", e.Source, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
