package content

import "fmt"

// PlaceholderQuestions returns a deterministic set of count questions used
// when an image-derived exam cannot get a valid set from the service.
func PlaceholderQuestions(count int) []QuestionDescriptor {
	out := make([]QuestionDescriptor, 0, count)
	for i := 0; i < count; i++ {
		correct := optionLetters[i%len(optionLetters)]
		options := make([]OptionDescriptor, len(optionLetters))
		for j, letter := range optionLetters {
			options[j] = OptionDescriptor{
				Letter:    letter,
				Text:      placeholderOptionText(letter, letter == correct),
				IsCorrect: letter == correct,
			}
		}
		out = append(out, QuestionDescriptor{
			QuestionText: fmt.Sprintf("Question %d: Which statement best reflects the material shown in the uploaded image?", i+1),
			Options:      options,
			Difficulty:   "easy",
			Explanation:  "Review the uploaded image; automatic question generation was not available for it.",
		})
	}
	return out
}

func placeholderOptionText(letter string, correct bool) string {
	if correct {
		return "The main idea presented in the image"
	}
	switch letter {
	case "A":
		return "A detail unrelated to the image"
	case "B":
		return "A topic the image does not cover"
	case "C":
		return "An idea contradicting the image"
	default:
		return "None of the content in the image"
	}
}
