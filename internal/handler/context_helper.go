package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-issue-tracker/internal/middleware"
	"github.com/noah-isme/lab-issue-tracker/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}
