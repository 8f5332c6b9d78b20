package status

// Status represents story processing status
type Status int

const (
	// Processing - initial state, pipeline is running
	Processing Status = iota + 1
	// Completed - final state, audio is ready
	Completed
	// Failed - final state, errorMessage is set
	Failed
)

var (
	statusName = map[Status]string{Processing: "processing", Completed: "completed",
		Failed: "failed"}
	nameStatus = map[string]Status{"processing": Processing, "completed": Completed,
		"failed": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// Terminal returns true for final states
func Terminal(st Status) bool {
	return st == Completed || st == Failed
}
