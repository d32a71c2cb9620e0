// Package response assembles the terminal artifacts of a chat request: the
// assistant message and the provenance metadata describing which passages
// backed it.
package response

import (
	"math"
	"time"

	"coax-rag-be/pkg/store"

	"github.com/google/uuid"
)

// AssistantMessage is the terminal artifact of one completed generation.
type AssistantMessage struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"` // ISO-8601
}

// Provenance records one passage that backed an answer. Scores are rounded
// to 4 decimal places and null when the underlying score is unavailable.
type Provenance struct {
	PassageId string   `json:"passage_id"`
	Section   string   `json:"section,omitempty"`
	Score     *float64 `json:"score"`
	Text      string   `json:"text"`
}

// previewLen caps the passage text carried in metadata.
const previewLen = 200

// NewAssistantMessage creates the assistant message for a completed
// generation. Content is assumed validated non-empty by the caller.
func NewAssistantMessage(content string) AssistantMessage {
	return AssistantMessage{
		Id:        "assistant-" + uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// BuildMetadata maps the passages of one retrieval call into provenance
// entries, order preserved. Passages from other retrieval calls must never
// be mixed in.
func BuildMetadata(passages []store.Passage) []Provenance {
	metadata := make([]Provenance, len(passages))
	for i, p := range passages {
		metadata[i] = Provenance{
			PassageId: p.ID,
			Section:   p.Source["section"],
			Score:     roundScore(p.Score),
			Text:      preview(p.Text),
		}
	}
	return metadata
}

func roundScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	rounded := math.Round(*score*10000) / 10000
	return &rounded
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
