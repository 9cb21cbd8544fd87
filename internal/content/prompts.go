package content

import (
	"fmt"
	"unicode/utf8"
)

const generationSystemPrompt = `You write multiple-choice exam questions for students.
Every question must be answerable from the provided study material alone.
Each question has exactly four options lettered A, B, C and D, and exactly one correct option.
Distractors must be plausible. Return only the requested JSON.`

const visionSystemPrompt = `You transcribe study material from images.
Return all readable text and describe diagrams or formulas in plain sentences.
Do not add commentary.`

// maxPromptChars bounds the material sent for generation
const maxPromptChars = 60000

func generationPrompt(text string, count int) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	return fmt.Sprintf(`Create exactly %d multiple-choice questions from the study material below.
Mix difficulties (easy, medium, hard) and give a one sentence explanation for each correct answer.

Study material:
"""
%s
"""`, count, text)
}
