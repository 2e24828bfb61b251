package tx

// Optional marks a caller-supplied field as either Provided or Unset, so a
// supplied zero can be told apart from an omitted value.
type Optional[T any] struct {
	value T
	set   bool
}

// Provided wraps a caller-supplied value.
func Provided[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Unset is the absent value.
func Unset[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was provided.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the value was provided.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value when provided, otherwise def.
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}
