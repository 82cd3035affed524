package domain

// OptionalID is a three-state update descriptor for a nullable reference:
// left unspecified, explicitly cleared, or set to an id.
type OptionalID struct {
	specified bool
	value     *string
}

// Unspecified leaves the current value unchanged.
func Unspecified() OptionalID { return OptionalID{} }

// SetNull clears the current value.
func SetNull() OptionalID { return OptionalID{specified: true} }

// SetTo replaces the current value with id.
func SetTo(id string) OptionalID { return OptionalID{specified: true, value: &id} }

// IsSpecified reports whether the caller supplied the field at all.
func (o OptionalID) IsSpecified() bool { return o.specified }

// IsNull reports whether the caller explicitly cleared the field.
func (o OptionalID) IsNull() bool { return o.specified && o.value == nil }

// Value returns the new id, or nil for unspecified and cleared descriptors.
func (o OptionalID) Value() *string {
	if o.value == nil {
		return nil
	}
	v := *o.value
	return &v
}

// Resolve returns the value the field should hold after applying o to current.
func (o OptionalID) Resolve(current *string) *string {
	if !o.specified {
		return current
	}
	return o.Value()
}
