package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// CanGrade reports whether the role may manage quizzes and grades.
func (r UserRole) CanGrade() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// AllModels lists every table the service migrates.
func AllModels() []any {
	return []any{
		&Assignment{},
		&Submission{},
		&QuizSettings{},
		&InstructorQuestion{},
		&SubmissionQuestion{},
		&QuizSession{},
		&GradeRecord{},
		&SubmissionTask{},
		&CacheEntry{},
	}
}
