package reconcile

// Outcome is the result of one invocation. It is built once and not modified
// after it is returned.
type Outcome struct {
	Success    bool   `json:"success"`
	Changed    bool   `json:"changed"`
	ResourceID string `json:"resource_id"`
	Message    string `json:"message,omitempty"`

	// Err is the failure behind an unsuccessful outcome. Use KindOf to
	// classify it.
	Err error `json:"-"`
}

// Failure turns err into a failed Outcome. The message is never empty.
func Failure(err error) Outcome {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Outcome{Success: false, Message: msg, Err: err}
}

func unchanged(id, msg string) Outcome {
	return Outcome{Success: true, ResourceID: id, Message: msg}
}

func changed(id, msg string) Outcome {
	return Outcome{Success: true, Changed: true, ResourceID: id, Message: msg}
}
