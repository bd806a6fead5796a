package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/quiz-service/internal/errors"
)

var (
	ErrForbidden = errors.New("forbidden - insufficient permissions")

	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQuizDisabled       = errors.New("quiz is not enabled for this assignment")

	ErrQuestionNotFound    = errors.New("question not found")
	ErrNoValidQuestions    = errors.New("gateway returned no usable questions")
	ErrInstructionsMissing = errors.New("assignment has no instructions to analyze")

	ErrSessionNotFound   = errors.New("quiz session not found")
	ErrSessionNotStarted = errors.New("quiz session has not been started")
	ErrSessionCompleted  = errors.New("quiz session is already completed")
	ErrInvalidQuestion   = errors.New("question index is out of range or moves backwards")

	ErrInvalidGrade    = errors.New("grade is outside the allowed range")
	ErrZeroTotalPoints = errors.New("quiz has no points to grade against")
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// PermissionError records who was refused what; it matches ErrForbidden
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation covers both field errors and rejected values the services check themselves
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidGrade) || errors.Is(err, ErrInvalidQuestion) {
		return true
	}
	var many apperrors.ValidationErrors
	if errors.As(err, &many) {
		return true
	}
	var one *apperrors.ValidationError
	return errors.As(err, &one)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionCompleted)
}

// IsUnprocessable reports requests that were valid but could not produce a result
func IsUnprocessable(err error) bool {
	return errors.Is(err, ErrNoValidQuestions) || errors.Is(err, ErrZeroTotalPoints)
}
