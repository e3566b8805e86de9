package melcloud

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the vendor rejects the context key (HTTP 401).
var ErrUnauthorized = errors.New("melcloud: chave de contexto não autorizada")

// ErrUnknownLoginError is returned when the login payload carries an error code
// outside the known table.
var ErrUnknownLoginError = errors.New("melcloud: código de erro de login desconhecido")

// APIError is every failure that is not an authorization failure: transport
// errors, unexpected status codes, undecodable payloads and login rejections.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("melcloud %s: http %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("melcloud %s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// loginErrorMessages is indexed by the ErrorId the server returns on a
// rejected ClientLogin.
var loginErrorMessages = [10]string{
	"Login failed, please try again later.",
	"Invalid email address or password.",
	"This account has not been verified. Please check your email for the verification link.",
	"This account has been disabled.",
	"This account is temporarily locked. Please try again in a few minutes.",
	"This application version is out of date. Please update the application.",
	"CAPTCHA verification is required to log in.",
	"Too many login attempts. Please wait before trying again.",
	"The password has expired and must be reset.",
	"No account is registered with this email address.",
}

// HasError reports whether the login payload carries an error code.
func (r LoginResponse) HasError() bool {
	return r.ErrorID != nil
}

// ErrorMessage resolves the rejection reason of a failed login. An explicit
// message from the server wins over the table.
func (r LoginResponse) ErrorMessage() (string, error) {
	if r.Message != nil && *r.Message != "" {
		return *r.Message, nil
	}
	if r.ErrorID == nil {
		return "", nil
	}
	code := *r.ErrorID
	if code < 0 || code >= len(loginErrorMessages) {
		return "", fmt.Errorf("%w: %d", ErrUnknownLoginError, code)
	}
	return loginErrorMessages[code], nil
}

// Token returns the context key of a successful login.
func (r LoginResponse) Token() string {
	if r.LoginData == nil {
		return ""
	}
	return r.LoginData.ContextKey
}
