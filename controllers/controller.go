package controller

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/authz"
)

// denialStatus maps a denial reason to the HTTP status the API documents:
// 401 for unauthenticated, 422 for referential-integrity violations (a
// business-rule error, not an auth failure), 403 for everything else.
func denialStatus(reason authz.DenialReason) int {
	switch reason {
	case authz.ReasonNotAuthenticated:
		return fiber.StatusUnauthorized
	case authz.ReasonHasDependentChildren:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusForbidden
	}
}

// denialMessage renders a user-facing message for a denial.
func denialMessage(reason authz.DenialReason) string {
	switch reason {
	case authz.ReasonNotAuthenticated:
		return "Not authenticated"
	case authz.ReasonNotOwner:
		return "Only the owner can perform this action"
	case authz.ReasonSelfActionForbidden:
		return "You cannot perform this action on your own account"
	case authz.ReasonHasDependentChildren:
		return "Resource still has dependent records"
	case authz.ReasonInsufficientPermission:
		return "You do not have permission to perform this action"
	default:
		return "Access denied"
	}
}

// deny writes the standard error body for a denied decision.
func deny(c *fiber.Ctx, decision authz.Decision) error {
	return c.Status(denialStatus(decision.Reason)).JSON(fiber.Map{
		"success": false,
		"error":   denialMessage(decision.Reason),
		"reason":  decision.Reason,
	})
}
