package chunker

import (
	"fmt"
	"strings"

	"knowledge-hub/internal/models"
)

const (
	DefaultChunkSize    = 1000 // characters
	DefaultChunkOverlap = 100  // characters
)

// Split cuts content into overlapping windows of at most targetLength
// characters. Consecutive windows share overlap characters so context
// at chunk boundaries is not lost. A break at whitespace or sentence
// punctuation is preferred when one exists within the trailing tenth
// of the window; the last chunk may be shorter than targetLength.
func Split(content string, targetLength, overlap int) ([]string, error) {
	if targetLength <= 0 {
		return nil, fmt.Errorf("target length must be positive: got %d", targetLength)
	}
	if overlap < 0 || overlap >= targetLength {
		return nil, fmt.Errorf("overlap must be in [0, target length): got %d/%d", overlap, targetLength)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.ErrEmptyInput
	}

	contentLen := len(content)
	if contentLen <= targetLength {
		return []string{content}, nil
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+targetLength, contentLen)

		// Look for a clean break within the last 10% of the window.
		if end < contentLen {
			lookBack := min(targetLength/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= contentLen {
			break
		}
		// Guarantee forward progress even when the break point moved
		// the window edge back into the overlap region.
		next := end - overlap
		if next <= start {
			next = start + targetLength - overlap
		}
		start = next
	}

	return chunks, nil
}

// SplitPage applies Split to one page of extracted text and wraps the
// pieces as chunks carrying their source metadata. Chunk IDs restart
// per page, following the page-local numbering of the extractor.
func SplitPage(page models.Page, filename string, targetLength, overlap int) ([]models.Chunk, error) {
	pieces, err := Split(page.Text, targetLength, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			Content:        piece,
			SourceFilename: filename,
			PageNumber:     page.Number,
			ChunkID:        i + 1,
		})
	}
	return chunks, nil
}
