package workitem

// Status is the canonical workflow status of a work item.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCodeReview Status = "code_review"
	StatusTesting    Status = "testing"
	StatusDone       Status = "done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusCodeReview, StatusTesting, StatusDone}

// IsValid returns true if the status is a recognized work item status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCodeReview, StatusTesting, StatusDone:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
