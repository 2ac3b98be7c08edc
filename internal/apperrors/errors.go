package apperrors

import (
	"errors"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrStateNotFound      = errors.New("authorization state not found")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMissingCode      = errors.New("authorization code is missing")
	ErrCsrfMismatch     = errors.New("authorization state mismatch")
	ErrTokenExchange    = errors.New("authorization code exchange failed")
	ErrRefreshFailed    = errors.New("token refresh failed")

	ErrProviderUnavailable      = errors.New("provider unavailable")
	ErrMalformedRecord          = errors.New("malformed record")
	ErrSummarizationUnavailable = errors.New("summarization service unavailable")
)
