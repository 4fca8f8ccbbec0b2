package llm

// Assemble builds the request for the screenshotted questions: one image part per
// data URI in upload order, followed by a single text part.
func Assemble(resumeText, websiteText string, images []string) PromptRequest {
	parts := make([]Part, 0, len(images)+1)
	for _, uri := range images {
		parts = append(parts, Part{Type: PartImage, ImageURL: uri})
	}
	parts = append(parts, Part{Type: PartText, Text: AnswerPrompt(resumeText, websiteText)})
	return PromptRequest{
		System: SystemInstruction,
		Parts:  parts,
	}
}

// TextPart returns the request's text part.
func (r PromptRequest) TextPart() (Part, bool) {
	for _, p := range r.Parts {
		if p.Type == PartText {
			return p, true
		}
	}
	return Part{}, false
}
