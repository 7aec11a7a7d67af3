package models

// Status represents the server-side processing state of a video job.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further status transitions occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// VideoJob is the server-owned processing record. The client only reads
// snapshots; every field is written server-side.
type VideoJob struct {
	VideoID     string `json:"video_id"`
	FileName    string `json:"file_name"`
	Status      Status `json:"status"`
	Progress    int    `json:"progress"`
	DownloadURL string `json:"download_url,omitempty"`
}

// PresignRequest is the body of POST /api/presign-upload. The content type
// and digest keys mirror the S3 object metadata the backend will attach.
type PresignRequest struct {
	Filename        string `json:"filename"`
	SizeBytes       int64  `json:"sizeBytes"`
	DurationSeconds int    `json:"durationSeconds"`
	ContentType     string `json:"Content-Type"`
	VideoHash       string `json:"x-amz-meta-video_hash"`
}

// PresignResponse carries the time-limited write target and the job id that
// links the upload to the processing pipeline.
type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	VideoID   string `json:"videoId"`
}

// VideoList is the body of GET /api/videos.
type VideoList struct {
	Videos []VideoJob `json:"videos"`
}
