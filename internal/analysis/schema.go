package analysis

import "encoding/json"

// resultSchema is the JSON Schema sent with every generation request. The
// score range is part of the schema so the service enforces it too.
const resultSchema = `{
  "type": "object",
  "properties": {
    "clarity_score": {
      "type": "integer",
      "minimum": 0,
      "maximum": 100,
      "description": "A numerical score (0-100) indicating the speaker's fluency, grammar, and pace."
    },
    "communication_focus": {
      "type": "string",
      "description": "A single, concise sentence summarizing the main topic of the video."
    },
    "transcript": {
      "type": "string",
      "description": "The complete text transcription of the audio content."
    }
  },
  "required": ["clarity_score", "communication_focus", "transcript"],
  "additionalProperties": false
}`

// ResultSchema returns a fresh copy of the JSON Schema describing Result.
func ResultSchema() json.RawMessage {
	return json.RawMessage(resultSchema)
}
