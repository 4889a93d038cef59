package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/domain"
	apperrors "github.com/medhaven/portal-auth/pkg/util"
)

// RecordsHandler holds the representative guarded data endpoints. The real
// CRUD surface lives in sibling services; these endpoints exist to exercise
// the authenticated-principal contract, including the per-resource
// ownership check the guard deliberately leaves to handlers.
type RecordsHandler struct{}

// NewRecordsHandler returns a new handler instance.
func NewRecordsHandler() *RecordsHandler {
	return &RecordsHandler{}
}

// Me handles GET /api/me for any authenticated role.
func (h *RecordsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("missing credentials")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{"principal": toPrincipalResponse(principal)},
	})
}

// PatientRecords handles GET /api/patients/:id/records. The guard has
// already vetted role membership; a patient must additionally own the
// requested record set.
func (h *RecordsHandler) PatientRecords(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("missing credentials")
	}

	patientID := c.Params("id")
	if principal.Role == domain.RolePatient && principal.ID != patientID {
		return apperrors.NewForbidden("not the record owner")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"patient_id": patientID,
			"records":    []fiber.Map{},
		},
	})
}

// PharmacyOrders handles GET /api/pharmacy/orders for pharmacy principals.
func (h *RecordsHandler) PharmacyOrders(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("missing credentials")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"pharmacy_id": principal.ID,
			"orders":      []fiber.Map{},
		},
	})
}
