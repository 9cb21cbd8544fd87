package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	MinQuestionCount = 1
	MaxQuestionCount = 50
	MaxTitleLength   = 200
	MaxTimeLimit     = 600
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the pipeline's custom rules
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with every custom rule registered
func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerRules()
	return v
}

// Validate runs struct tag validation
func (v *Validator) Validate(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExamCreate validates tags plus the cross-field rules of exam creation
func (v *Validator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, v.Validate(req)...)

	if strings.TrimSpace(req.Title) == "" && req.Title != "" {
		errs = append(errs, ValidationError{
			Field:   "title",
			Message: "cannot be blank",
			Value:   req.Title,
			Rule:    "business_logic",
		})
	}
	return errs
}

// ValidateSubmit checks the shape of a submission batch. Membership of
// questions in the exam is checked by the grading engine.
func (v *Validator) ValidateSubmit(req *SubmitAnswersRequest) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, v.Validate(req)...)

	seen := make(map[uint]bool, len(req.Answers))
	for i, a := range req.Answers {
		if seen[a.QuestionID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "is answered more than once",
				Value:   a.QuestionID,
				Rule:    "duplicate_answer",
			})
		}
		seen[a.QuestionID] = true
	}
	return errs
}

// ToValidationErrors converts validator errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldName(fe),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldName turns "SubmitAnswersRequest.Answers[0].Option" into "Answers[0].Option"
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("document_kind", func(fl validator.FieldLevel) bool {
		switch models.DocumentKind(fl.Field().String()) {
		case models.DocumentPDF, models.DocumentDOCX, models.DocumentTXT, models.DocumentImage:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	v.validate.RegisterValidation("question_count", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= MinQuestionCount && n <= MaxQuestionCount
	})

	v.validate.RegisterValidation("option_letter", func(fl validator.FieldLevel) bool {
		return models.IsValidOptionLetter(fl.Field().String())
	})

	v.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) <= MaxTitleLength
	})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "document_kind":
		return "must be one of pdf, docx, txt, image"
	case "passing_score":
		return "must be between 0 and 100"
	case "question_count":
		return fmt.Sprintf("must be between %d and %d", MinQuestionCount, MaxQuestionCount)
	case "option_letter":
		return "must be one of A, B, C, D"
	case "exam_title":
		return fmt.Sprintf("must not exceed %d characters", MaxTitleLength)
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
