package gemini

import "errors"

// ErrEmptyTaskTitle is returned when an explanation is requested without a task.
var ErrEmptyTaskTitle = errors.New("task title cannot be empty")
