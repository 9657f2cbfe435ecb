// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

// field records a failed check as a field error, or nil when ok.
func field(name string, ok bool, message string) *FieldError {
	if ok {
		return nil
	}
	return &FieldError{Field: name, Message: message}
}

// validate collects field errors into a ValidationError, or nil when all
// checks passed.
func validate(checks ...*FieldError) error {
	var fields []FieldError
	for _, check := range checks {
		if check != nil {
			fields = append(fields, *check)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
