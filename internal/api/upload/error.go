package upload

import (
	"SlideScope/pkg/response"
	"errors"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")

	ErrUnsupportedFileFormat = errors.New("unsupported file format, supported formats: PNG, JPG, JPEG, TIFF, TIF")
	ErrSessionNotFound       = errors.New("upload session not found")
	ErrIllegalTransition     = errors.New("illegal upload session state transition")
	ErrInvalidState          = errors.New("unknown upload session state")
)
