package domain

import "time"

// Artifact references a generated binary held client-side until released.
type Artifact struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

const ContentTypePDF = "application/pdf"
