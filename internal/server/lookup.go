package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
)

// Read endpoints for the lookup UI boundary.

func (s *Server) ListAccountEmails(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "invalid_account_id", "account id is required"))
		return
	}

	emails, err := s.manager.EmailsByAccount(c.Request.Context(), sponsordomain.AccountID{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": emails})
}

func (s *Server) LookupAccountByEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		AbortWithError(c, newValidationError("email", "invalid_email", "email is required"))
		return
	}

	record, err := s.manager.AccountByEmail(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) GetInstallation(c *gin.Context) {
	kind, ok := sponsordomain.ParseAppKind(c.Param("kind"))
	if !ok {
		AbortWithError(c, sponsordomain.ErrInvalidAppKind)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "invalid_account_id", "account id is required"))
		return
	}

	record, err := s.manager.Installation(c.Request.Context(), kind, sponsordomain.AccountID{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) GetSponsorship(c *gin.Context) {
	sponsorable := strings.TrimSpace(c.Param("sponsorable"))
	sponsor := strings.TrimSpace(c.Param("sponsor"))
	if sponsorable == "" || sponsor == "" {
		AbortWithError(c, newValidationError("sponsorable", "invalid_account_id", "sponsorable and sponsor ids are required"))
		return
	}

	record, err := s.manager.SponsorshipOf(c.Request.Context(), sponsorable, sponsor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}
