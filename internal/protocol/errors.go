package protocol

import "fmt"

// Terminal admission outcomes. Every failed login maps to exactly one code.
const (
	// Gate layer (no lock or region state touched yet).
	ErrAccountProblem    = "E_ACCOUNT_PROBLEM"
	ErrAuthProblem       = "E_AUTH_PROBLEM"
	ErrTOSRequired       = "E_TOS_REQUIRED"
	ErrLoginLevelBlocked = "E_LOGIN_LEVEL_BLOCKED"
	ErrPermanentBanned   = "E_PERMANENT_BANNED"
	ErrTemporaryBanned   = "E_TEMPORARY_BANNED"
	ErrPasswordIncorrect = "E_PASSWORD_INCORRECT"

	// Bootstrap / placement layer.
	ErrInventoryProblem = "E_INVENTORY_PROBLEM"
	ErrDeadRegion       = "E_DEAD_REGION"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrAccountProblem:    {},
	ErrAuthProblem:       {},
	ErrTOSRequired:       {},
	ErrLoginLevelBlocked: {},
	ErrPermanentBanned:   {},
	ErrTemporaryBanned:   {},
	ErrPasswordIncorrect: {},
	ErrInventoryProblem:  {},
	ErrDeadRegion:        {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// LoginFailure is a typed terminal outcome. It travels as an error value
// through the pipeline and is rendered verbatim on the wire.
type LoginFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TOSText string `json:"tos_text,omitempty"`
}

func (f *LoginFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func Failf(code, format string, args ...any) *LoginFailure {
	return &LoginFailure{Code: code, Message: fmt.Sprintf(format, args...)}
}
