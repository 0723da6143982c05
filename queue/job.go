package queue

import "encoding/json"

// Job asks for one variant to be run over one media buffer. Media is base64
// in the JSON encoding.
type Job struct {
	JobID    string          `json:"jobId"`
	Variant  string          `json:"variant"`
	MIMEType string          `json:"mimeType"`
	FileName string          `json:"fileName,omitempty"`
	Media    []byte          `json:"media"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// JobResult is pushed to the output list for every job that could be decoded.
// Result is set when a reply came back, even one that failed to parse; Error
// is set when the request failed before that.
type JobResult struct {
	JobID    string          `json:"jobId"`
	Variant  string          `json:"variant"`
	Result   interface{}     `json:"result,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}
