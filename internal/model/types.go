package model

import "time"

// VerificationRecord is what gets forwarded to the recorders after a comparison.
// Field names follow the verifications table.
type VerificationRecord struct {
	ID                   string    `json:"id"`
	Filename             string    `json:"filename"`
	MatchResult          bool      `json:"match_result"`
	ContentHash          string    `json:"hash"`
	SimilarityPercentage float64   `json:"similarity_percentage"`
	CreatedAt            time.Time `json:"created_at"`
}

// VerifyResponse is the body of POST /api/verify.
type VerifyResponse struct {
	Success          bool           `json:"success"`
	Hash             string         `json:"hash,omitempty"`
	Similarity       string         `json:"similarity,omitempty"`
	Details          *VerifyDetails `json:"details,omitempty"`
	Error            string         `json:"error,omitempty"`
	ProcessingTimeMs *int64         `json:"processingTimeMs,omitempty"`
}

type VerifyDetails struct {
	PixelSimilarity      float64  `json:"pixelSimilarity"`
	PerceptualSimilarity float64  `json:"perceptualSimilarity"`
	StructuralSimilarity float64  `json:"structuralSimilarity"`
	Threshold            *float64 `json:"threshold,omitempty"`
	ProcessingTimeMs     int64    `json:"processingTimeMs"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Error     string `json:"error,omitempty"`
}

// StatsSnapshot counts verifications since process start.
type StatsSnapshot struct {
	Total         int64     `json:"total"`
	Matches       int64     `json:"matches"`
	Mismatches    int64     `json:"mismatches"`
	AvgSimilarity float64   `json:"avg_similarity"`
	Since         time.Time `json:"since"`
}
