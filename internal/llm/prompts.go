package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/answer_v1.txt
var answerPromptV1 string

// SystemInstruction is sent as the system message of every request.
const SystemInstruction = "You are a helpful assistant that analyzes resumes, website content, and images to provide relevant insights."

// AnswerPrompt renders the instruction text with the website and résumé text interpolated verbatim.
func AnswerPrompt(resumeText, websiteText string) string {
	// Single pass so placeholders inside user text are left alone.
	replacer := strings.NewReplacer(
		"{{WEBSITE_DATA}}", websiteText,
		"{{RESUME_TEXT}}", resumeText,
	)
	return replacer.Replace(answerPromptV1)
}
