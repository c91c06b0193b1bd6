package template

// Named sets the id of t and returns it.
func Named[T Template](id string, t T) T {
	t.base().ID = id
	return t
}

// WithBefore appends before-hooks to t and returns it.
func WithBefore[T Template](t T, hooks ...Hook) T {
	b := t.base()
	b.Before = append(b.Before, hooks...)
	return t
}

// WithAfter appends after-hooks to t and returns it.
func WithAfter[T Template](t T, hooks ...Hook) T {
	b := t.base()
	b.After = append(b.After, hooks...)
	return t
}

// Seq is shorthand for a Linear over templates.
func Seq(templates ...Template) *Linear {
	return &Linear{Templates: templates}
}

// Goodbye is shorthand for an End with a farewell message.
func Goodbye(farewell string) *End {
	return &End{Farewell: farewell}
}
