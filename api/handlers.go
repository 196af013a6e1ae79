package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/securebackend/sbops/internal/logging"
)

// Service names reported by the endpoints.
const (
	DefaultServiceName = "secure-backend-aks"
	analysisService    = "Private AKS Backend"
)

// ProcessRequest is the body of POST /process. Empty strings are accepted,
// missing fields are not.
type ProcessRequest struct {
	FirstName *string `json:"firstName" binding:"required"`
	LastName  *string `json:"lastName" binding:"required"`
	TextData  *string `json:"textData" binding:"required"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// AuthenticationAnalysis describes the accepted credentials.
type AuthenticationAnalysis struct {
	Timestamp     string `json:"timestamp"`
	Authenticated bool   `json:"authenticated"`
	Service       string `json:"service"`
}

// ProcessingDetails describes the processed text.
type ProcessingDetails struct {
	DataLength  int    `json:"data_length"`
	ProcessedAt string `json:"processed_at"`
}

// ProcessResponse is the body of a successful POST /process.
type ProcessResponse struct {
	Message                string                 `json:"message"`
	AuthenticationAnalysis AuthenticationAnalysis `json:"authentication_analysis"`
	ProcessingDetails      ProcessingDetails      `json:"processing_details"`
}

type handler struct {
	service string
	now     func() time.Time
}

func (h *handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.timestamp(),
		Service:   h.service,
	})
}

func (h *handler) process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	text := *req.TextData
	logging.FromContext(c.Request.Context()).Debug(c.Request.Context(), "processing request", "data_length", utf8.RuneCountInString(text))
	c.JSON(http.StatusOK, ProcessResponse{
		Message: fmt.Sprintf("Hello %s %s. Received: %s", *req.FirstName, *req.LastName, text),
		AuthenticationAnalysis: AuthenticationAnalysis{
			Timestamp:     h.timestamp(),
			Authenticated: true,
			Service:       analysisService,
		},
		ProcessingDetails: ProcessingDetails{
			DataLength:  utf8.RuneCountInString(text),
			ProcessedAt: h.timestamp(),
		},
	})
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	// Only the first space separates the scheme. Extra spaces belong to the token.
	return token, token != ""
}

// RequireBearer rejects requests without a bearer token (403) or with a
// different token (401).
func RequireBearer(token string, m *Metrics) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if m != nil {
				m.authFailures.WithLabelValues("missing").Inc()
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			if m != nil {
				m.authFailures.WithLabelValues("invalid").Inc()
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}
		c.Next()
	}
}
