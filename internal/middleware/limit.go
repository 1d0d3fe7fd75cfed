package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FormOverhead is the room left for form fields and multipart framing on top of the file limit.
const FormOverhead = 1 << 20

// LimitBody caps how many request body bytes handlers can read.
// Reads past n fail with *http.MaxBytesError.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
