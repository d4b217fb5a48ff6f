package validator

// Validator validates structs using their `validate` tags.
type Validator interface {
	// Validate returns nil when data satisfies every rule.
	Validate(data any) error
}
