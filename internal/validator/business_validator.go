package validator

import (
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// BusinessValidator applies the rules that struct tags cannot express.
type BusinessValidator struct {
	questions *QuestionValidator
}

func NewBusinessValidator(questions *QuestionValidator) *BusinessValidator {
	return &BusinessValidator{questions: questions}
}

func (b *BusinessValidator) Validate(s interface{}) ValidationErrors {
	switch v := s.(type) {
	case *models.Question:
		return b.questions.ValidateQuestion("", v)
	}
	return nil
}
