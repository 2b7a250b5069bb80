package service

import "errors"

// Domain errors returned by services. Handlers map them to HTTP responses.
var (
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNoPriorSubmission  = errors.New("no prior submission for this quiz")

	ErrAIUnavailable   = errors.New("ai service unavailable")
	ErrAIInvalidOutput = errors.New("ai service returned invalid output")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)
