package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrFileNotFound        = errors.New("file not found")
	ErrInvalidPayload      = errors.New("invalid resource payload")
	ErrShaderNotFound      = errors.New("shader not found")
)

// LogFailure reports err with its full stack trace, when it carries one.
func LogFailure(err error, msg string, args ...interface{}) {
	if err == nil {
		return
	}
	getLogger().Helper()
	getLogger().Errorf("%s: %+v", fmt.Sprintf(msg, args...), err)
}
