package models

// Status is the lifecycle state of a video. The download worker owns the
// transitions up to StatusDownloaded/StatusFailed; the upload stage owns
// StatusUploading and StatusUploaded but the whole domain is declared here
// so the backpressure check can count across both stages.
type Status string

const (
	StatusNotStarted  Status = "not_started"
	StatusDownloading Status = "downloading"
	StatusDownloaded  Status = "downloaded"
	StatusUploading   Status = "uploading"
	StatusUploaded    Status = "uploaded"
	StatusFailed      Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusDownloading, StatusDownloaded,
		StatusUploading, StatusUploaded, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the download worker will never touch a video in
// this status again within a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusDownloaded, StatusUploading, StatusUploaded, StatusFailed:
		return true
	}
	return false
}

// InFlightStatuses is the inclusive downloading..uploading range used by the
// batch backpressure gate: videos that occupy local disk until the upload
// stage has moved them out.
func InFlightStatuses() []Status {
	return []Status{StatusDownloading, StatusDownloaded, StatusUploading}
}

func (s Status) String() string {
	return string(s)
}
