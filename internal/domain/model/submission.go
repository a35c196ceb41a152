package model

// Submission is a prediction received over the API. SubmissionID is chosen
// by the client and makes retries idempotent.
type Submission struct {
	SubmissionID string `json:"submission_id"`
	Prediction
}
