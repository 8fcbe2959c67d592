package handlers

import (
	"errors"
	"reflect"
	"strings"

	"lyceum/internal/apperr"
	"lyceum/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

func init() {
	// report json field names in validation messages
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// respondError writes the {"error", "kind"} body for err. Internal failures are logged with
// the request id and reported with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.WithError(err).
			WithField("request_id", c.GetString(middleware.RequestIDKey)).
			WithField("path", c.FullPath()).
			Error("[api] internal error")
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{
		"error": apperr.Message(err),
		"kind":  kind.String(),
	})
}

// bindError turns a binding failure into a BadRequest naming the first offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.BadRequest("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.BadRequest(fe.Field() + " is required")
	case "max":
		return apperr.BadRequest(fe.Field() + " is too long")
	default:
		return apperr.BadRequest("Invalid " + fe.Field())
	}
}

func ok(c *gin.Context, status int, body interface{}) {
	c.JSON(status, body)
}
