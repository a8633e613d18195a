package analysis

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SystemInstruction sets the analyst persona and makes the schema mandatory.
const SystemInstruction = "You are a Senior Communication Analyst. Your task is to transcribe " +
	"the provided audio file and generate a professional communication analysis. " +
	"You MUST strictly follow the provided JSON schema for the output. " +
	"The Clarity Score should reflect the speaker's fluency, coherence, and grammar, " +
	"and the Communication Focus must be a single, concise, professional sentence."

// UserPrompt asks for the transcript, the score, and the focus sentence.
const UserPrompt = "Analyze the provided audio. Generate the full, accurate transcript, " +
	"calculate the Clarity Score (0-100), and state the Communication Focus."

// buildPrompt appends the spoken-language hint when one is configured. The
// hint must already be a valid BCP 47 tag; invalid tags are ignored.
func buildPrompt(languageHint string) string {
	languageHint = strings.TrimSpace(languageHint)
	if languageHint == "" {
		return UserPrompt
	}
	tag, err := language.Parse(languageHint)
	if err != nil {
		return UserPrompt
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		name = tag.String()
	}
	return UserPrompt + " The speech is in " + name + "; write the transcript in that language."
}
