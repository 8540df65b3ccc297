package apierrors

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// body is the wire shape every non-2xx response takes, modeled on the
// teacher's PrimusApiError{ErrorCode,...} envelope.
type body struct {
	ErrorCode        string `json:"errorCode"`
	Message          string `json:"message"`
	OAuthError       string `json:"error,omitempty"`
	OAuthDescription string `json:"error_description,omitempty"`
}

// AbortWithApiError is the single place an HTTP handler turns a domain
// error into a response. /oauth/* errors render the RFC-6749
// error/error_description shape; everything else renders errorCode/message.
func AbortWithApiError(c *gin.Context, err error) {
	apiErr := AsAPIError(err)
	klog.ErrorS(apiErr, "request failed", "code", apiErr.Code, "path", c.Request.URL.Path)

	if apiErr.Code == CodeRateLimited {
		c.Header("Retry-After", strconv.Itoa(apiErr.RetryAfterSeconds))
	}

	if apiErr.OAuthCode != "" {
		c.AbortWithStatusJSON(apiErr.HTTPStatus, body{
			OAuthError:       apiErr.OAuthCode,
			OAuthDescription: apiErr.Sanitized(),
		})
		return
	}

	c.AbortWithStatusJSON(apiErr.HTTPStatus, body{
		ErrorCode: string(apiErr.Code),
		Message:   apiErr.Sanitized(),
	})
}
