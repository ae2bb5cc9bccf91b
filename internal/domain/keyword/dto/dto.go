package dto

import (
	"time"

	"github.com/supersunho/senseinfo/internal/domain/keyword/entities"
)

// AddKeywordRequest attaches one rule to a channel
type AddKeywordRequest struct {
	Word        string `json:"word"`
	IsInclusion *bool  `json:"is_inclusion,omitempty"`
}

// KeywordResponse is the public view of a keyword rule
type KeywordResponse struct {
	ID          uint      `json:"id"`
	Word        string    `json:"word"`
	IsInclusion bool      `json:"is_inclusion"`
	IsActive    bool      `json:"is_active"`
	ChannelID   uint      `json:"channel_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToKeywordResponse converts an entity to its public view
func ToKeywordResponse(k *entities.KeywordRule) *KeywordResponse {
	return &KeywordResponse{
		ID:          k.ID,
		Word:        k.Word,
		IsInclusion: k.IsInclusion,
		IsActive:    k.IsActive,
		ChannelID:   k.ChannelID,
		CreatedAt:   k.CreatedAt,
	}
}

// ToKeywordResponses converts a slice of entities
func ToKeywordResponses(rules []entities.KeywordRule) []KeywordResponse {
	out := make([]KeywordResponse, 0, len(rules))
	for i := range rules {
		out = append(out, *ToKeywordResponse(&rules[i]))
	}
	return out
}
