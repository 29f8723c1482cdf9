package types

import "time"

const (
	SubmissionSubmitted = "submitted"
	SubmissionConfirmed = "confirmed"
	SubmissionReverted  = "reverted"
)

var SubmissionStatuses = []string{SubmissionSubmitted, SubmissionConfirmed, SubmissionReverted}

// Submission is a dispatched gateway call as kept by the tracker.
type Submission struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	TxHash      string    `json:"txHash"`
	Network     string    `json:"network"`
	ChainID     uint64    `json:"chainId,omitempty"`
	Gateway     string    `json:"gateway"`
	Receiver    string    `json:"receiver"`
	Sender      string    `json:"sender"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	BlockNumber uint64    `json:"blockNumber,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}
