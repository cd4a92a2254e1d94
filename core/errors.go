package core

import "errors"

var (
	// ErrInvalidArgument reports a caller contract violation such as a nil
	// animation or model.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLogic reports an unsupported configuration: an unknown pixel format,
	// a texture operation the texture kind cannot serve, an invalid cube face.
	ErrLogic = errors.New("logic error")
)
