package generator

import (
	"errors"
	"strings"

	"github.com/inu9431/qna-archiver/pkg/qna"
)

// Section labels the model is instructed to emit. Parsing is forgiving for
// everything except the answer body itself
const (
	labelTitle    = "제목:"
	labelCategory = "카테고리:"
	labelKeywords = "키워드:"
	labelAnswer   = "답변:"
)

// parseAnswer extracts structured fields from the raw model output.
// Missing title, category, or keywords fall back to defaults; a missing
// answer body is a parsing failure, never defaulted
func parseAnswer(raw string, categories *qna.CategorySet) (*qna.GeneratedAnswer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, qna.NewGenerationError(qna.GenerationParsingFailed, errors.New("empty model response"))
	}

	answer := &qna.GeneratedAnswer{
		Title:    qna.DefaultTitle,
		Category: qna.CategoryGeneral,
	}

	lines := strings.Split(raw, "\n")
	bodyStart := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(stripEmphasis(line))
		switch {
		case strings.HasPrefix(trimmed, labelTitle):
			if title := strings.TrimSpace(strings.TrimPrefix(trimmed, labelTitle)); title != "" {
				answer.Title = title
			}
		case strings.HasPrefix(trimmed, labelCategory):
			answer.Category = categories.Parse(strings.TrimPrefix(trimmed, labelCategory))
		case strings.HasPrefix(trimmed, labelKeywords):
			answer.Keywords = parseKeywords(strings.TrimPrefix(trimmed, labelKeywords))
		case strings.HasPrefix(trimmed, labelAnswer):
			// The body is the remainder of the label line plus everything after it
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, labelAnswer))
			body := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			if rest != "" {
				if body != "" {
					body = rest + "\n" + body
				} else {
					body = rest
				}
			}
			answer.AnswerText = body
			bodyStart = i
		}
		if bodyStart >= 0 {
			break
		}
	}

	if answer.AnswerText == "" {
		return nil, qna.NewGenerationError(qna.GenerationParsingFailed, errors.New("answer body missing from model response"))
	}

	return answer, nil
}

// stripEmphasis removes markdown bold markers so labels like "**제목:**"
// still parse
func stripEmphasis(line string) string {
	return strings.ReplaceAll(line, "**", "")
}

// parseKeywords splits a keyword line on commas and hash tags
func parseKeywords(raw string) []string {
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "#"))
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
