package validate

// Reason codes carried by invalid results. They double as translation keys.
const (
	ReasonEmailRequired    = "email-required"
	ReasonEmailTooLong     = "email-too-long"
	ReasonEmailFormat      = "invalid-email"
	ReasonEmailDisposable  = "email-disposable"
	ReasonUsernameRequired = "username-required"
	ReasonUsernameLength   = "username-length"
	ReasonUsernameFormat   = "username-format"
	ReasonUsernameTaken    = "username-taken"
	ReasonUsernameCheck    = "username-check-failed"
	ReasonPasswordRequired = "password-required"
	ReasonPasswordTooShort = "weak-password"
	ReasonPasswordWeak     = "password-composition"
)

// Result is the outcome of a single validator: either valid with the
// normalized value, or invalid with a reason. Never both.
type Result struct {
	Valid  bool
	Value  string
	Reason string
}

// OK builds a valid result carrying the normalized value.
func OK(value string) Result {
	return Result{Valid: true, Value: value}
}

// Invalid builds a rejected result.
func Invalid(reason string) Result {
	return Result{Reason: reason}
}
