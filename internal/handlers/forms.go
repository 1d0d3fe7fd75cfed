package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/emilythestrangee/blog/backend/internal/service"
)

const requiredMessage = "This field is required."

// fieldErrors turns binding failures into messages keyed by the lower-case field name.
// ok is false when err is not a validation failure (malformed body and the like).
func fieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = requiredMessage
		case "max":
			out[field] = fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		case "min":
			out[field] = fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		case "email":
			out[field] = "Enter a valid email address."
		default:
			out[field] = "Enter a valid value."
		}
	}
	return out, true
}

// bodyTooLarge reports whether err came from a request body cut off by middleware.LimitBody.
func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// readImage returns the optional "image" upload of a multipart request.
// At most limit+1 bytes are buffered so oversized files can still be rejected by size.
func readImage(c *gin.Context, limit int64) (*service.ImageUpload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, nil
	}

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return openUpload(fh, limit)
}

func openUpload(fh *multipart.FileHeader, limit int64) (*service.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &service.ImageUpload{Filename: fh.Filename, Data: data}, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// safeNext only allows local absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
