package analysis

import (
	"SlideScope/pkg/response"
	"errors"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")

	ErrImageDecode       = errors.New("invalid or corrupted image file")
	ErrTestImageNotFound = errors.New("test image not found")
	ErrInvalidTestImage  = errors.New("invalid test image")
	ErrRecordNotFound    = errors.New("analysis record not found")
)
