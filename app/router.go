// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/SarAA2003/QuickAi/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.POST("/api/stripe/webhook", StripeWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			return UpsertUserFromClaims(c.Request.Context(), claims)
		},
	}))
	protected.GET("/me", Me)

	ai := protected.Group("/api/ai")
	ai.POST("/generate-article", GenerateArticle)
	ai.POST("/generate-blog-title", GenerateBlogTitle)
	ai.POST("/generate-image", GenerateImage)
	ai.POST("/remove-image-background", RemoveImageBackground)
	ai.POST("/remove-image-object", RemoveImageObject)
	ai.POST("/resume-review", ResumeReview)

	user := protected.Group("/api/user")
	user.GET("/get-user-creations", GetUserCreations)
	user.GET("/get-published-creations", GetPublishedCreations)

	billing := protected.Group("/api/billing")
	billing.POST("/create-checkout-session", CreateCheckoutSession)
	billing.POST("/portal-session", CreatePortalSession)

	return router, nil
}
