package content

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func validQuestion(n int, correct string) QuestionDescriptor {
	q := QuestionDescriptor{
		QuestionText: fmt.Sprintf("What is fact %d?", n),
		Difficulty:   "medium",
		Explanation:  "Because.",
	}
	for _, letter := range optionLetters {
		q.Options = append(q.Options, OptionDescriptor{Letter: letter, Text: "Option " + letter, IsCorrect: letter == correct})
	}
	return q
}

func questionSetJSON(t *testing.T, questions ...QuestionDescriptor) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(questionSet{Questions: questions})
	if err != nil {
		t.Fatalf("marshal question set: %v", err)
	}
	return b
}
