package orchestrator

import "errors"

var (
	ErrNoSession       = errors.New("no session")
	ErrSessionFinished = errors.New("session finished")
	ErrPlyInFlight     = errors.New("ply request already in flight")
	ErrAutoStepRefused = errors.New("auto stepping is only available in ai-vs-ai mode")
	ErrStaleResponse   = errors.New("stale ply response discarded")
	ErrUploadInvalid   = errors.New("upload form incomplete")
	ErrNoControls      = errors.New("no upload controls configured")
	ErrEmptyOutcome    = errors.New("session outcome has no state")
)
