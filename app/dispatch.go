package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SarAA2003/QuickAi/app/models"
	"github.com/SarAA2003/QuickAi/auth"

	"github.com/gin-gonic/gin"
)

// featureTimeout bounds the whole resolve/call/record sequence. Model
// inference is the slow part.
const featureTimeout = 90 * time.Second

// denialError is a policy or input rejection: reported to the caller as a
// normal response, never retried, never logged as a failure.
type denialError struct {
	message string
}

func (e denialError) Error() string { return e.message }

func denial(msg string) error { return denialError{message: msg} }

// feature describes one dispatchable action: its access policy, the ledger
// row it produces, and the single external call it performs.
type feature struct {
	policy featurePolicy
	kind   models.CreationType
	// prompt is recorded in the ledger; for upload features it is a fixed
	// description rather than user input.
	prompt  string
	publish bool
	// validate checks feature-specific input preconditions after the gate
	// and before the external call. Returned errors must be denials.
	validate func() error
	// call performs exactly one external capability invocation and returns
	// the content (text or URL) for the response and the ledger.
	call func(ctx context.Context) (string, error)
}

// dispatch runs the shared request sequence: resolve entitlement, gate,
// validate input, invoke the capability, append the ledger row, and charge
// the metered counter. Denials short-circuit before the external call.
func dispatch(c *gin.Context, f feature) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), featureTimeout)
	defer cancel()

	if entitlements == nil || creations == nil {
		respondFailure(c, "Could not verify your subscription. Please try again.")
		return
	}

	// Read the counter fresh here rather than trusting anything attached
	// earlier in the request.
	ent, err := entitlements.Resolve(ctx, claims.Subject)
	if err != nil {
		log.Printf("entitlement resolve failed sub=%s err=%v", claims.Subject, err)
		respondFailure(c, "Could not verify your subscription. Please try again.")
		return
	}

	if d := checkQuota(ent, f.policy); !d.Allow {
		respondFailure(c, d.Reason)
		return
	}

	if f.validate != nil {
		if err := f.validate(); err != nil {
			respondFailure(c, err.Error())
			return
		}
	}

	content, err := f.call(ctx)
	if err != nil {
		var d denialError
		if errors.As(err, &d) {
			respondFailure(c, d.message)
			return
		}
		log.Printf("feature call failed type=%s sub=%s err=%v", f.kind, claims.Subject, err)
		respondFailure(c, err.Error())
		return
	}

	rec := models.Creation{
		UserID:  claims.Subject,
		Prompt:  f.prompt,
		Content: content,
		Type:    f.kind,
		Publish: f.publish,
	}
	if err := creations.Append(ctx, rec); err != nil {
		log.Printf("creation append failed type=%s sub=%s err=%v", f.kind, claims.Subject, err)
		respondFailure(c, "Failed to save creation.")
		return
	}

	// Charge the allowance only after the call and the ledger row succeed;
	// a failed call never consumes allowance.
	if f.policy.FreeAllowance > 0 && ent.Plan != models.PlanPremium {
		if err := entitlements.IncrementFreeUsage(ctx, claims.Subject); err != nil {
			log.Printf("usage increment failed sub=%s err=%v", claims.Subject, err)
			respondFailure(c, "Failed to update usage.")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": content})
}

func respondFailure(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}
