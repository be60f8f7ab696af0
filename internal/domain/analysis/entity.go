package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// UploadedImage is the transient request payload: raw bytes plus the
// client-declared MIME type and original filename. It is owned by the
// request until persisted to the object store.
type UploadedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Aggregate Root: Analysis
// One record per /analyze call; the result is never reused across requests.
type Analysis struct {
	ID          AnalysisID `json:"id"`
	ImageFileID string     `json:"image_file_id"`
	Filename    string     `json:"filename,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Model       string     `json:"model,omitempty"`
	Result      string     `json:"result"`
	CreatedAt   time.Time  `json:"created_at"`
}
