package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/errors"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion checks the option rules for the question type.
// Field names are prefixed so batch callers can point at a single question.
func (v *QuestionValidator) ValidateQuestion(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(q.Text) == "" {
		errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"text", "is required", "required", q.Text))
	}

	if q.Points != 0 && (q.Points < 1 || q.Points > 100) {
		errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"points", "must be between 1 and 100", "points_range", q.Points))
	}

	switch q.Type {
	case models.MultipleChoice:
		if len(q.Options) < 2 || countCorrect(q.Options) != 1 {
			errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"options",
				"must contain at least two options with exactly one marked correct", "question_options", len(q.Options)))
		}
	case models.TrueFalse:
		if len(q.Options) != 2 || countCorrect(q.Options) != 1 {
			errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"options",
				"must contain exactly the True and False options with one marked correct", "true_false_options", len(q.Options)))
		}
	case models.ShortAnswer:
		// free text, options are informational only
	default:
		errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"type",
			"must be a valid question type (multiple_choice, true_false, short_answer)", "question_type", q.Type))
	}

	for i, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			errs = append(errs, *errors.NewValidationErrorWithRule(fmt.Sprintf("%soptions[%d].text", prefix, i),
				"is required", "required", opt.Text))
		}
	}

	return errs
}

// ValidateBatch validates multiple questions
func (v *QuestionValidator) ValidateBatch(questions []models.Question) error {
	var errs ValidationErrors
	for i := range questions {
		errs = append(errs, v.ValidateQuestion(fmt.Sprintf("questions[%d].", i), &questions[i])...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func countCorrect(options []models.Option) int {
	n := 0
	for _, opt := range options {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}
