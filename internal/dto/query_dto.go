package dto

import (
	"github.com/google/uuid"
)

type QueryRequest struct {
	Text string `json:"text" validate:"required,min=1"`
	K    int    `json:"k" validate:"omitempty,min=1,max=50"`
}

type CitationResponse struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Locator    string    `json:"locator"`
}

type AnswerResponse struct {
	Text      string             `json:"text"`
	Citations []CitationResponse `json:"citations"`
	Grounded  bool               `json:"grounded"`
	Model     string             `json:"model"`
	Cached    bool               `json:"cached"`
}

type SearchResultResponse struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	Locator    string    `json:"locator"`
	Similarity float64   `json:"similarity"`
	Rank       int       `json:"rank"`
}
