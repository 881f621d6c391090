package domain

import "encoding/json"

// Queue names shared by every stage. Each stage consumes exactly one.
const (
	StoryQueue        = "story_queue"
	MediaQueue        = "media_queue"
	DistributionQueue = "distribution_queue"
)

// Message is the flat payload relayed between stages. Every stage needs
// at least the job id; the remaining fields are optional per queue.
// Unknown fields in incoming payloads are ignored for forward
// compatibility.
type Message struct {
	JobID          string         `json:"job_id"`
	SourceURL      string         `json:"source_url,omitempty"`
	Title          string         `json:"title,omitempty"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
	Platforms      []string       `json:"platforms,omitempty"`
	Scheduled      bool           `json:"scheduled,omitempty"`
	Retry          bool           `json:"retry,omitempty"`
}

// Encode serializes the message for queue transport.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a queue payload, tolerating fields it does not know.
func DecodeMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
