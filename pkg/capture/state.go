package capture

// State is a capture loop state.
type State int

const (
	Waiting State = iota
	FaceDetected
	Matched
	TimedOut
	Aborted
)

var stateNames = map[State]string{
	Waiting:      "waiting",
	FaceDetected: "face_detected",
	Matched:      "matched",
	TimedOut:     "timed_out",
	Aborted:      "aborted",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions leave s.
func (s State) Terminal() bool {
	return s == Matched || s == TimedOut || s == Aborted
}

// Event is an observation made during one loop iteration.
type Event int

const (
	// FrameDropped means the source returned no frame.
	FrameDropped Event = iota
	// NoFace means the frame contained no usable landmarks.
	NoFace
	// FaceMismatch means a face was found but not in the target pose.
	FaceMismatch
	// FaceMatch means the face is in the target pose.
	FaceMatch
	// Deadline means the session timeout has elapsed.
	Deadline
	// Abort means the user asked to quit.
	Abort
)

var eventNames = map[Event]string{
	FrameDropped: "frame_dropped",
	NoFace:       "no_face",
	FaceMismatch: "face_mismatch",
	FaceMatch:    "face_match",
	Deadline:     "deadline",
	Abort:        "abort",
}

// String implements fmt.Stringer.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// Next is the capture loop transition function. Terminal states absorb
// every event.
func Next(s State, e Event) State {
	if s.Terminal() {
		return s
	}
	switch e {
	case FrameDropped, NoFace:
		return Waiting
	case FaceMismatch:
		return FaceDetected
	case FaceMatch:
		return Matched
	case Deadline:
		return TimedOut
	case Abort:
		return Aborted
	}
	return s
}
