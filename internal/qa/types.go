// Package qa holds the wire types for the question-answering backend and the
// client that talks to it.
package qa

// Citation is a half-open character range [Start, End) into the document text
// that produced an answer, tagged with the retrieved chunk it came from. The
// backend gives no guarantee that Start <= End or that either index is in
// bounds; consumers must clamp.
type Citation struct {
	ChunkID string `json:"chunk_id"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// AnswerSentence is one sentence of the answer with the citations asserted to
// support it. Zero citations is valid.
type AnswerSentence struct {
	Sentence  string     `json:"sentence"`
	Citations []Citation `json:"citations"`
}

// RetrievedChunk records a retrieval score for one chunk.
type RetrievedChunk struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// ChunkPreview carries the text and span of a retrieved chunk for inspection.
type ChunkPreview struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Text    string  `json:"text"`
}

// SanitizedFlags reports whether the backend sanitized either input.
type SanitizedFlags struct {
	Question bool `json:"question"`
	Document bool `json:"document"`
}

// Trace is the diagnostic record attached to every answer. It is display-only
// and never drives control flow.
type Trace struct {
	Retrieved          []RetrievedChunk   `json:"retrieved"`
	ChunksPreview      []ChunkPreview     `json:"chunks_preview"`
	Thresholds         map[string]float64 `json:"thresholds"`
	TimingsMS          map[string]float64 `json:"timings_ms"`
	FallbackUsed       bool               `json:"fallback_used"`
	DroppedSentences   int                `json:"dropped_sentences"`
	VerificationScores []float64          `json:"verification_scores"`
	Sanitized          SanitizedFlags     `json:"sanitized"`
}

// AskResponse is the backend's reply. When Abstained is true the answer is
// ignored for copy/highlight purposes even if non-empty.
type AskResponse struct {
	Answer    []AnswerSentence `json:"answer"`
	Abstained bool             `json:"abstained"`
	Trace     Trace            `json:"trace"`
}

// AskRequest is the body sent to the backend's /ask endpoint.
type AskRequest struct {
	Question     string `json:"question"`
	DocumentText string `json:"document_text"`
}
