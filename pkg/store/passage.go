package store

// Passage is a retrieved unit of knowledge-base text together with its
// similarity score and source metadata. Passages are produced fresh per
// retrieval call and never cached across requests.
type Passage struct {
	ID     string
	Text   string
	Score  *float64 // cosine similarity, higher is better; nil when unavailable
	Source map[string]string
}
