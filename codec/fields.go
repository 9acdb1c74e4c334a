package codec

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned when a required map key is absent.
var ErrMissingField = errors.New("missing field")

// Fields is a decoded map whose values are still encoded. It lets callers
// decode each field into its own Go type and tell absent fields apart
// from zero values.
type Fields map[string]RawMessage

// DecodeFields decodes data, which must be a map with text keys.
func DecodeFields(data []byte) (Fields, error) {
	var f Fields
	if err := Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("expected map, got null")
	}
	return f, nil
}

// Has reports whether name is present.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Require decodes the named field into v. An absent field is an error.
func (f Fields) Require(name string, v any) error {
	raw, ok := f[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingField, name)
	}
	if err := Unmarshal(raw, v); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

// Optional decodes the named field into v if it is present and reports
// whether it was.
func (f Fields) Optional(name string, v any) (bool, error) {
	raw, ok := f[name]
	if !ok {
		return false, nil
	}
	if err := Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("field %q: %w", name, err)
	}
	return true, nil
}
