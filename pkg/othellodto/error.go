package othellodto

// ServiceError is returned when the move service answered but reported
// success=false.
type ServiceError struct {
	Op      string
	Message string
}

func (e ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Op != "" {
		return e.Op + " failed"
	}
	return "move service error"
}
