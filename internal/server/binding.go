package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindMessages maps a field's wire name and a failed validation tag to the
// message sent back to the client.
type bindMessages map[string]map[string]string

// lookup returns the message for the first failed field it knows about.
// Slice elements report under the slice's name.
func (m bindMessages) lookup(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fallback
	}
	for _, verr := range verrs {
		field, _, _ := strings.Cut(verr.Field(), "[")
		if msg, ok := m[field][verr.Tag()]; ok {
			return msg
		}
	}
	return fallback
}

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	return checkBind(c, c.ShouldBindJSON(req), http.StatusBadRequest, messages, fallback)
}

// bindURI answers 404: a malformed path names no record.
func bindURI(c *gin.Context, req any) bool {
	return checkBind(c, c.ShouldBindUri(req), http.StatusNotFound, nil, "not found")
}

func bindQuery(c *gin.Context, req any, messages bindMessages) bool {
	return checkBind(c, c.ShouldBindQuery(req), http.StatusBadRequest, messages, "invalid query")
}

func checkBind(c *gin.Context, err error, status int, messages bindMessages, fallback string) bool {
	if err == nil {
		return true
	}
	writeError(c, status, messages.lookup(err, fallback))
	return false
}
