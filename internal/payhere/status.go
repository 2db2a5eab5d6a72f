package payhere

// Status is the decoded meaning of a notification status_code.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// StatusFromCode maps the gateway's notification codes: "2" success,
// "0" pending, "-1" cancelled, "-2" failed, anything else unknown.
func StatusFromCode(code string) Status {
	switch code {
	case "2":
		return StatusSuccess
	case "0":
		return StatusPending
	case "-1":
		return StatusCancelled
	case "-2":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// A payment-search record reports RECEIVED when the money actually landed;
// every other value is a verification failure.
const SearchStatusReceived = "RECEIVED"
