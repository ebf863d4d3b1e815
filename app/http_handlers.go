// Package app provides public health and authenticated user endpoints.
package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/SarAA2003/QuickAi/app/models"
	"github.com/SarAA2003/QuickAi/auth"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns plan and free-usage info for the authenticated user.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if entitlements == nil {
		log.Printf("me: entitlement store not initialized")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	ent, err := entitlements.Resolve(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("me: entitlement resolve failed sub=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	var limit any = nil
	var remaining any = nil
	if ent.Plan != models.PlanPremium {
		limit = FreeUsageLimit
		remainingCount := FreeUsageLimit - ent.FreeUsage
		if remainingCount < 0 {
			remainingCount = 0
		}
		remaining = remainingCount
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":      ent.Plan,
		"freeUsage": ent.FreeUsage,
		"limit":     limit,
		"remaining": remaining,
	})
}

// GetUserCreations lists the caller's creations, newest first.
func GetUserCreations(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if creations == nil {
		respondFailure(c, "Failed to load creations.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	recs, err := creations.ListByUser(ctx, claims.Subject)
	if err != nil {
		log.Printf("list creations failed sub=%s err=%v", claims.Subject, err)
		respondFailure(c, "Failed to load creations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "creations": recs})
}

// GetPublishedCreations lists community-published image creations.
func GetPublishedCreations(c *gin.Context) {
	if creations == nil {
		respondFailure(c, "Failed to load creations.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	recs, err := creations.ListPublished(ctx)
	if err != nil {
		log.Printf("list published creations failed err=%v", err)
		respondFailure(c, "Failed to load creations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "creations": recs})
}
