package scheduler

import "strconv"

// EventType tags the handful of control events the scheduler drains
// at each loop boundary: app-switch requests from the event listener,
// and shutdown.
type EventType uint8

const (
	NextAppRequest EventType = iota
	PreviousAppRequest
	ResumePauseRequest
	// PauseRequest and ResumeRequest are idempotent variants of
	// ResumePauseRequest: the console control channel's PauseRendering
	// and ResumeRendering messages map onto these directly instead of
	// the toggle, since a repeated message from the console must not
	// flip the state back.
	PauseRequest
	ResumeRequest
	ReloadAppsRequest
	Shutdown
)

func (e EventType) String() string {
	switch e {
	case NextAppRequest:
		return "NextAppRequest"
	case PreviousAppRequest:
		return "PreviousAppRequest"
	case ResumePauseRequest:
		return "ResumePauseRequest"
	case PauseRequest:
		return "PauseRequest"
	case ResumeRequest:
		return "ResumeRequest"
	case ReloadAppsRequest:
		return "ReloadAppsRequest"
	case Shutdown:
		return "Shutdown"
	default:
		return "EventType(" + strconv.Itoa(int(e)) + ")"
	}
}
