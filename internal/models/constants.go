package models

const (
	ContextSeparator = "\n---\n"

	// NoInfoFound is returned for queries that match nothing in the
	// index; the model is not invoked in that case.
	NoInfoFound = "No info found in document."

	// NotFoundSentinel is the phrase the model is instructed to emit
	// when the answer is absent from the supplied context.
	NotFoundSentinel = "The answer is not in the provided context."

	// FlashcardCount is the number of cards requested per document.
	FlashcardCount = 5
)

var (
	AnswerPromptTemplate = `Answer the question based ONLY on the context below.
If the answer is not in the context, reply exactly: "%s"
Format the answer as markdown for readability.

Context:
%s

Question: %s
`

	AnalysisPromptTemplate = `Analyze the text below. Return ONLY raw JSON, no markdown fences.
Structure:
{
  "summary": "markdown summary with 5 bullet points",
  "flashcards": [
    {"question": "Q1", "answer": "A1"},
    {"question": "Q2", "answer": "A2"},
    {"question": "Q3", "answer": "A3"},
    {"question": "Q4", "answer": "A4"},
    {"question": "Q5", "answer": "A5"}
  ]
}

Document Text:
%s
`
)
