package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/metrics"
)

// ErrReauthenticationFailed is returned by WithReauth when the token was
// rejected and the new login did not succeed either.
var ErrReauthenticationFailed = errors.New("falha ao renovar a chave de contexto")

// Authenticator performs the vendor login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*melcloud.LoginResponse, error)
}

// Session owns the access token. It is the only writer of the token and is
// not safe for concurrent use; the poller drives it from a single goroutine.
type Session struct {
	auth     Authenticator
	email    string
	password string
	token    string
	log      *logrus.Entry
}

// NewSession builds a session. token may be empty, in which case Authenticate
// must be called before the first authenticated request.
func NewSession(auth Authenticator, email, password, token string, log *logrus.Entry) *Session {
	return &Session{
		auth:     auth,
		email:    email,
		password: password,
		token:    token,
		log:      log,
	}
}

func (s *Session) Token() string {
	return s.token
}

// Authenticate logs in and replaces the token wholesale.
func (s *Session) Authenticate(ctx context.Context) error {
	s.log.Infof("Efetuando login com o e-mail %s", s.email)
	metrics.IncLogin()

	resp, err := s.auth.Login(ctx, s.email, s.password)
	if err != nil {
		return fmt.Errorf("falha no login: %w", err)
	}
	token := resp.Token()
	if token == "" {
		return errors.New("falha no login: resposta sem chave de contexto")
	}

	s.token = token
	s.log.Info("Login efetuado com sucesso")
	return nil
}

// Reauthenticate replaces a token the vendor rejected.
func (s *Session) Reauthenticate(ctx context.Context) error {
	s.log.Warn("Chave de contexto rejeitada, renovando login")
	return s.Authenticate(ctx)
}

// WithReauth runs call with the session token. If the token is rejected it
// logs in once and runs call exactly once more; the second result is returned
// as is.
func WithReauth[T any](ctx context.Context, s *Session, call func(ctx context.Context, token string) (T, error)) (T, error) {
	result, err := call(ctx, s.Token())
	if !errors.Is(err, melcloud.ErrUnauthorized) {
		return result, err
	}

	if authErr := s.Reauthenticate(ctx); authErr != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrReauthenticationFailed, authErr)
	}
	return call(ctx, s.Token())
}
