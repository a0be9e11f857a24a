package entity

import "github.com/google/uuid"

// Citation links an answer back to the chunk it was grounded on.
type Citation struct {
	ChunkId    uuid.UUID     `json:"chunk_id"`
	DocumentId uuid.UUID     `json:"document_id"`
	Filename   string        `json:"filename"`
	Locator    SourceLocator `json:"locator"`
}

// Answer is the ephemeral result of one query. Grounded is false when no
// retrieved chunk cleared the relevance floor and the canned
// insufficient-context text was returned instead of calling the provider.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Grounded  bool       `json:"grounded"`
	Model     string     `json:"model,omitempty"`
}
