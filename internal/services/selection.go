package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuestionSelector builds the frozen question set of a new session.
// It is safe for concurrent use.
type QuestionSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuestionSelector uses rng for every random choice. A nil rng is seeded from the clock.
func NewQuestionSelector(rng *rand.Rand) *QuestionSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuestionSelector{rng: rng}
}

// Select samples each pool independently without replacement, shuffles the
// union and truncates it to the configured total.
func (s *QuestionSelector) Select(instructor, submission []models.Question, settings *models.QuizSettings) []models.SessionQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make([]models.SessionQuestion, 0, settings.TotalQuizQuestions())
	for _, q := range s.sample(instructor, settings.InstructorQuestions) {
		selected = append(selected, models.SessionQuestion{Source: models.SourceInstructor, Question: q})
	}
	for _, q := range s.sample(submission, settings.SubmissionQuestions) {
		selected = append(selected, models.SessionQuestion{Source: models.SourceSubmission, Question: q})
	}

	s.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	if total := settings.TotalQuizQuestions(); len(selected) > total {
		selected = selected[:total]
	}

	if settings.RandomizeAnswers {
		for i := range selected {
			q := &selected[i].Question
			if q.Type != models.MultipleChoice {
				continue
			}
			s.rng.Shuffle(len(q.Options), func(a, b int) {
				q.Options[a], q.Options[b] = q.Options[b], q.Options[a]
			})
		}
	}

	return selected
}

// sample picks min(n, len(pool)) questions and deep-copies their options
func (s *QuestionSelector) sample(pool []models.Question, n int) []models.Question {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}

	out := make([]models.Question, 0, n)
	for _, idx := range s.rng.Perm(len(pool))[:n] {
		q := pool[idx]
		q.Options = append([]models.Option(nil), q.Options...)
		out = append(out, q)
	}
	return out
}
