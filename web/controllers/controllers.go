package controllers

import (
	"errors"
	"net/http"
	"strings"

	"go-referral/auth"
	"go-referral/lifecycle"
	"go-referral/log"
	"go-referral/referral"
	"go-referral/web/jobs"
	"go-referral/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SupportedVersions are the client versions the API still serves.
var SupportedVersions = map[string]bool{
	"1.0.0": true,
	"1.1.0": true,
}

type Handler struct {
	Auth       *auth.Service
	Services   *referral.Services
	Reconciler *jobs.Reconciler
	Logger     *log.Logger

	// UPIPayee is the collecting VPA shown in payment QR codes.
	UPIPayee     string
	UPIPayeeName string
}

// fail writes err with the status its kind maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		ve *lifecycle.ValidationError
		te *lifecycle.InvalidTransitionError
		ae *lifecycle.AuthorizationError
		re *lifecycle.RemoteError
	)
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Error()}
		if ve.Field != "" {
			body["fields"] = gin.H{ve.Field: ve.Message}
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &ae):
		c.JSON(http.StatusForbidden, gin.H{"error": ae.Error()})
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, gin.H{"error": te.Error()})
	case errors.As(err, &re):
		h.Logger.WithError(err).Error("upstream failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream failure: " + re.Op})
	default:
		h.Logger.WithError(err).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bind decodes the JSON body into req and answers 400 with a field map when the
// binding tags reject it.
func bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := gin.H{}
		for _, fe := range verrs {
			fields[snake(fe.Field())] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
	return false
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func caller(c *gin.Context) auth.Identity {
	id, _ := middleware.Identity(c)
	return id
}

func Version(c *gin.Context) {
	version := c.Query("client-version")
	if version == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing client-version parameter"})
		return
	}
	if !SupportedVersions[version] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported version"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
