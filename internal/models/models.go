package models

// Page is one page of extracted document text. Formats without a page
// concept (docx, txt) report a single page; spreadsheets report one page
// per sheet.
type Page struct {
	Number int
	Text   string
}

// Chunk represents a bounded segment of a document's text with its
// source metadata
type Chunk struct {
	Content        string
	SourceFilename string
	PageNumber     int
	ChunkID        int
}

// ChunkEmbedding pairs a chunk with its embedding vector
type ChunkEmbedding struct {
	Content        string
	Embedding      []float32
	SourceFilename string
	PageNumber     int
	ChunkID        int
}

// SearchResult is a retrieved chunk with its similarity score,
// higher is closer
type SearchResult struct {
	Chunk      Chunk
	Similarity float32
}

// PromptResponse is the answer returned for a query, with the source
// passages the answer was synthesized from
type PromptResponse struct {
	Query   string
	Source  string
	Content string
}

// Flashcard is a single question/answer study card
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnalysisResult holds the document summary and generated flashcards.
// Flashcards may be empty when the model response could not be decoded.
type AnalysisResult struct {
	Summary    string      `json:"summary"`
	Flashcards []Flashcard `json:"flashcards"`
}

// GenerateRequest is a single generative-model invocation. Key is the
// resolved credential; it must never be logged or persisted.
type GenerateRequest struct {
	Model  string
	Prompt string
	Key    string
}
