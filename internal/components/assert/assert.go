package assert

// NotNil panics if the value is nil. It is meant for constructor arguments that
// must always be wired.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}
