package validator

import (
	"reflect"
	"slices"
	"strings"

	apperrors "github.com/SAP-F-2025/quiz-service/internal/errors"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/go-playground/validator/v10"
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	questionValidator := NewQuestionValidator()
	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(questionValidator),
		questionValidator: questionValidator,
	}
}

// ValidateStruct validates struct tags only and returns the shared error shape
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateBusiness validates business rules only
func (v *Validator) ValidateBusiness(s interface{}) ValidationErrors {
	return v.businessValidator.Validate(s)
}

// Validate performs complete validation (struct + business rules)
func (v *Validator) Validate(s interface{}) error {
	// First validate struct tags
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	// Then validate business rules
	if errors := v.ValidateBusiness(s); len(errors) > 0 {
		return errors
	}

	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("time_per_question", validateTimePerQuestion)
	validate.RegisterValidation("violation_type", validateViolationType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return IsValidQuestionType(models.QuestionType(fl.Field().String()))
}

func validateTimePerQuestion(fl validator.FieldLevel) bool {
	return slices.Contains(models.ValidTimesPerQuestion, int(fl.Field().Int()))
}

func validateViolationType(fl validator.FieldLevel) bool {
	validTypes := []models.ViolationType{
		models.ViolationWindowBlur,
		models.ViolationTabSwitch,
		models.ViolationFullscreenExit,
		models.ViolationDevTools,
		models.ViolationCopyPaste,
		models.ViolationRightClick,
	}
	return slices.Contains(validTypes, models.ViolationType(fl.Field().String()))
}

// IsValidQuestionType reports whether the type is one the quiz can score
func IsValidQuestionType(t models.QuestionType) bool {
	switch t {
	case models.MultipleChoice, models.TrueFalse, models.ShortAnswer:
		return true
	}
	return false
}
