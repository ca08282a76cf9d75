package domain

import "errors"

var (
	// ErrAssessmentNotFound indicates the assessment id does not resolve.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrUserNotFound indicates a user reference could not be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidAssessment is returned when an authored assessment fails validation.
	ErrInvalidAssessment = errors.New("invalid assessment")
	// ErrInvalidSubmission is returned when a submission payload is malformed.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrDuplicateSubmission is returned when a client token was already recorded
	// for the assessment.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
