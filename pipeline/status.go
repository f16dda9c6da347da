package pipeline

// Status tracks a transaction attempt through the pipeline.
type Status int

const (
	StatusBuilt Status = iota
	StatusSigning
	StatusSigned
	StatusSubmitting
	StatusSubmitted
	StatusConfirming
	StatusConfirmed
	StatusSignFailed
	StatusSubmitFailed
)

func (s Status) String() string {
	switch s {
	case StatusBuilt:
		return "built"
	case StatusSigning:
		return "signing"
	case StatusSigned:
		return "signed"
	case StatusSubmitting:
		return "submitting"
	case StatusSubmitted:
		return "submitted"
	case StatusConfirming:
		return "confirming"
	case StatusConfirmed:
		return "confirmed"
	case StatusSignFailed:
		return "sign failed"
	case StatusSubmitFailed:
		return "submit failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the attempt is finished. A failed attempt stays
// failed; a new user action starts a fresh attempt instead of resuming.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusSignFailed, StatusSubmitFailed:
		return true
	default:
		return false
	}
}
