package integration

// Result reports the outcome of a controller call. Controllers never return
// Go errors; failures are carried in the Result so the expiry pipeline can
// keep going regardless of outcome.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MediaController pauses whatever media is playing on the host.
type MediaController interface {
	Pause() Result
}

// PowerController puts the host to sleep.
type PowerController interface {
	Suspend() Result
}
