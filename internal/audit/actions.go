package audit

// Audit actions emitted by the auth service.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionValidate = "validate"
	ActionLogout   = "logout"
)

// Audit outcomes. OutcomeDenied covers both invalid credentials and policy
// denials; Detail distinguishes them.
const (
	OutcomeSuccess   = "success"
	OutcomeDenied    = "denied"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
)
