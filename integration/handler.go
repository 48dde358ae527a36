package integration

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	auth "github.com/hireloop/portal-auth"
)

// Handler answers GET /api/integrations/:name/status for the caller's
// organization. Platform actors may name an organization with ?orgId=,
// without one they have nothing connected.
type Handler struct {
	Store  Store
	Logger auth.Logger
}

// NewHandler returns a status handler backed by store
func NewHandler(store Store, logger auth.Logger) *Handler {
	return &Handler{Store: store, Logger: logger}
}

// Register mounts the status route behind protect
func (h *Handler) Register(app fiber.Router, protect fiber.Handler) {
	app.Get("/api/integrations/:name/status", protect, h.Status)
}

func (h *Handler) Status(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromFiber(c)
	if !ok {
		return auth.ErrUnableToFindSession
	}

	scope, err := auth.ScopeFor(actor)
	if err != nil {
		return err
	}

	orgID := scope.OrgID()
	if scope.Unrestricted() {
		orgID = uuid.Nil
		if raw := c.Query("orgId"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				return auth.NewValidationError("Invalid organization id.", err)
			}
			orgID = parsed
		}
	}

	if orgID == uuid.Nil {
		return c.JSON(Status{Connected: false})
	}

	name := c.Params("name")
	connected, err := h.Store.IsConnected(c.UserContext(), orgID, name)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("integration status lookup failed", "integration", name, "org_id", orgID.String(), "error", err)
		}
		return err
	}

	return c.JSON(Status{Connected: connected})
}
