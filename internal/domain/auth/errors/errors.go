package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInternal            = errors.New("internal error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Login failure reasons. Both wrap ErrInvalidCredentials so that callers
// outside the service see a single kind.
var (
	ErrUserNotFound     = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrPasswordMismatch = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
)

// Access token failure kinds.
var (
	ErrTokenMalformed   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignatureInvalid = fmt.Errorf("%w: signature invalid", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrIssuerMismatch   = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	ErrAudienceMismatch = fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	ErrTokenRevoked     = fmt.Errorf("%w: revoked", ErrInvalidToken)
)

// Refresh token failure kinds.
var (
	ErrRefreshNotFound = fmt.Errorf("%w: user not found", ErrInvalidRefreshToken)
	ErrRefreshMismatch = fmt.Errorf("%w: token mismatch", ErrInvalidRefreshToken)
	ErrRefreshExpired  = fmt.Errorf("%w: expired", ErrInvalidRefreshToken)
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsInvalidRefreshToken(err error) bool {
	return errors.Is(err, ErrInvalidRefreshToken)
}
