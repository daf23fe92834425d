// authz.go bridges the HTTP layer to the authorization gate. Routes declare the
// predicate they require; the middleware builds the gate request from route
// params and aborts with 403 when the gate denies.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/lms-backend/internal/authz"
)

// RequirePredicate returns middleware that evaluates the given gate predicate
// for the authenticated user before the handler runs.
//
// The authorization scope is read from route params by convention:
//
//	:org_id               → organization scope
//	:org_id + :cohort_id  → cohort scope
//	:target_id            → target user for user-directed predicates
//
// Routes without an :org_id param are evaluated unscoped, which only a super
// admin can pass for scope-requiring predicates. AuthMiddleware must run first;
// an unauthenticated request is rejected with 401.
func RequirePredicate(gate *authz.Gate, predicate authz.Predicate) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		req := authz.Request{
			UserID:       userID,
			Scope:        scopeFromParams(c),
			TargetUserID: c.Param("target_id"),
		}

		allowed, err := gate.Authorize(c.Request.Context(), predicate, req)
		if err != nil {
			// ErrMissingScope and friends indicate a route wired to the wrong
			// predicate, not a client mistake
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authorization check failed",
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		c.Next()
	}
}

// RequireGlobalConfig guards platform-level configuration routes. Only an
// active super admin passes.
func RequireGlobalConfig(gate *authz.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		req := authz.Request{UserID: userID, GlobalConfig: true}
		allowed, err := gate.Authorize(c.Request.Context(), authz.PredicateManageSystemConfig, req)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authorization check failed",
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		c.Next()
	}
}

// scopeFromParams builds the authorization scope from route params. Returns
// nil for routes that carry no organization segment.
func scopeFromParams(c *gin.Context) *authz.Scope {
	orgID := c.Param("org_id")
	if orgID == "" {
		return nil
	}
	if cohortID := c.Param("cohort_id"); cohortID != "" {
		return authz.CohortScope(orgID, cohortID)
	}
	return authz.OrgScope(orgID)
}
