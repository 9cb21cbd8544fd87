package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestExpiryFor(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		limit *int
		want  *time.Time
	}{
		{name: "no limit", limit: nil, want: nil},
		{name: "zero limit", limit: intPtr(0), want: nil},
		{name: "negative limit", limit: intPtr(-5), want: nil},
		{name: "one minute", limit: intPtr(1), want: func() *time.Time { t := created.Add(time.Minute); return &t }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpiryFor(created, tt.limit))
		})
	}
}

func TestExam_EffectiveStatus(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	exam := &Exam{Status: ExamReady, ExpiresAt: ExpiryFor(created, intPtr(1))}

	assert.Equal(t, ExamReady, exam.EffectiveStatus(created.Add(30*time.Second)))
	assert.Equal(t, ExamReady, exam.EffectiveStatus(created.Add(60*time.Second)), "expiry is strictly after expiresAt")
	assert.Equal(t, ExamExpired, exam.EffectiveStatus(created.Add(61*time.Second)))

	exam.Status = ExamCompleted
	assert.Equal(t, ExamCompleted, exam.EffectiveStatus(created.Add(time.Hour)))

	never := &Exam{Status: ExamReady}
	assert.False(t, never.IsExpired(created.Add(24*365*time.Hour)))
	assert.Nil(t, never.RemainingSeconds(created))
}

func TestGradeFor(t *testing.T) {
	cases := map[int]Grade{100: GradeA, 90: GradeA, 89: GradeB, 80: GradeB, 70: GradeC, 69: GradeD, 60: GradeD, 59: GradeF, 0: GradeF}
	for score, want := range cases {
		assert.Equal(t, want, GradeFor(score), "score %d", score)
	}
}

func TestLearnerProgress_NeedsAttention(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-8 * 24 * time.Hour)

	tests := []struct {
		name string
		p    *LearnerProgress
		want bool
	}{
		{name: "nil progress", p: nil, want: true},
		{name: "no exams", p: &LearnerProgress{}, want: true},
		{name: "low average", p: &LearnerProgress{TotalExamsTaken: 2, AverageScore: 65, LastActivityAt: &recent}, want: true},
		{name: "inactive", p: &LearnerProgress{TotalExamsTaken: 2, AverageScore: 85, LastActivityAt: &stale}, want: true},
		{name: "healthy", p: &LearnerProgress{TotalExamsTaken: 2, AverageScore: 70, LastActivityAt: &recent}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.NeedsAttention(now))
		})
	}
}

func TestDetectDocumentKind(t *testing.T) {
	tests := []struct {
		file, mime string
		want       DocumentKind
		ok         bool
	}{
		{"notes.PDF", "", DocumentPDF, true},
		{"essay.docx", "", DocumentDOCX, true},
		{"readme", "text/plain; charset=utf-8", DocumentTXT, true},
		{"scan.jpeg", "", DocumentImage, true},
		{"blob", "image/png", DocumentImage, true},
		{"sheet.xlsx", "application/octet-stream", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectDocumentKind(tt.file, tt.mime)
		assert.Equal(t, tt.ok, ok, tt.file)
		assert.Equal(t, tt.want, got, tt.file)
	}
}

func TestQuestion_OptionLookup(t *testing.T) {
	q := &Question{Options: []QuestionOption{
		{Letter: "A"}, {Letter: "B", IsCorrect: true}, {Letter: "C"}, {Letter: "D"},
	}}
	assert.Equal(t, "B", q.CorrectOption().Letter)
	assert.NotNil(t, q.OptionByLetter("D"))
	assert.Nil(t, q.OptionByLetter("E"))
	assert.True(t, IsValidOptionLetter("C"))
	assert.False(t, IsValidOptionLetter("c"))
}
