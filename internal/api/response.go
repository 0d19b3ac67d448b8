package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/ai"
	"github.com/mr1hm/go-disaster-v2v/internal/analytics"
	"github.com/mr1hm/go-disaster-v2v/internal/assistant"
	"github.com/mr1hm/go-disaster-v2v/internal/auth"
	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
	"github.com/mr1hm/go-disaster-v2v/internal/v2v"
)

// Response is the envelope of every JSON reply except GeoJSON and the
// OpenAPI document.
type Response struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errBadRequest = eris.New("bad request")

// badRequest marks err as a client error that is not a validation failure.
func badRequest(format string, args ...any) error {
	return eris.Wrapf(errBadRequest, format, args...)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// fail maps err onto a status code and writes the error envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		verrs   validator.ValidationErrors
		syntax  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, Response{Error: "validation failed", Details: fieldErrors(verrs)})
	case errors.As(err, &syntax), errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, Response{Error: "malformed request body"})
	case errors.Is(err, io.EOF):
		c.JSON(http.StatusBadRequest, Response{Error: "request body is required"})
	case errors.Is(err, errBadRequest),
		errors.Is(err, v2v.ErrInvalidRadius),
		errors.Is(err, v2v.ErrInvalidLocation),
		errors.Is(err, analytics.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, Response{Error: clientMessage(err)})
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, Response{Error: "unauthorized"})
	case errors.Is(err, v2v.ErrForbidden), errors.Is(err, assistant.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Error: "forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: "not found"})
	case errors.Is(err, ingestion.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, Response{Error: "refresh already in progress"})
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, ingestion.ErrNotStarted):
		c.JSON(http.StatusServiceUnavailable, Response{Error: "service temporarily unavailable"})
	case errors.Is(err, ai.ErrNoJSON):
		c.JSON(http.StatusBadGateway, Response{Error: "unexpected reply from the assistant"})
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("error", eris.ToString(err, true)),
		)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal server error"})
	}
}

// clientMessage strips the sentinel text from bad request errors.
func clientMessage(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+errBadRequest.Error())
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace, leaving the
// json path, e.g. "location.latitude".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json (or form) names
// instead of Go field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
