package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/hireloop/portal-auth"
)

func newStatusApp(t *testing.T, store Store, actor *auth.Actor) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(nil)})
	protect := func(c *fiber.Ctx) error {
		if actor == nil {
			return auth.ErrUnableToFindSession
		}
		c.Locals(auth.ActorLocalsKey, actor)
		return c.Next()
	}

	NewHandler(store, nil).Register(app, protect)
	return app
}

func getStatus(t *testing.T, app *fiber.App, target string) (int, Status) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var status Status
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	}
	return resp.StatusCode, status
}

func TestStatusHandlerScopesToActorOrganization(t *testing.T) {
	store, _ := setupStore(t)
	orgA, orgB := uuid.New(), uuid.New()
	require.NoError(t, store.SetConnected(context.Background(), orgA, Greenhouse, true))

	app := newStatusApp(t, store, &auth.Actor{ID: uuid.NewString(), Role: auth.RoleClientAdmin, OrgID: orgA.String()})
	code, status := getStatus(t, app, "/api/integrations/greenhouse/status")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, status.Connected)

	// A client actor can not peek at another tenant through the query.
	app = newStatusApp(t, store, &auth.Actor{ID: uuid.NewString(), Role: auth.RoleClientAdmin, OrgID: orgB.String()})
	code, status = getStatus(t, app, "/api/integrations/greenhouse/status?orgId="+orgA.String())
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, status.Connected)
}

func TestStatusHandlerPlatformActor(t *testing.T) {
	store, _ := setupStore(t)
	orgA := uuid.New()
	require.NoError(t, store.SetConnected(context.Background(), orgA, Greenhouse, true))

	app := newStatusApp(t, store, &auth.Actor{ID: uuid.NewString(), Role: auth.RoleAdmin})

	code, status := getStatus(t, app, "/api/integrations/greenhouse/status")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, status.Connected)

	code, status = getStatus(t, app, "/api/integrations/greenhouse/status?orgId="+orgA.String())
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, status.Connected)

	code, _ = getStatus(t, app, "/api/integrations/greenhouse/status?orgId=nope")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusHandlerRequiresSession(t *testing.T) {
	store, _ := setupStore(t)
	app := newStatusApp(t, store, nil)

	code, _ := getStatus(t, app, "/api/integrations/greenhouse/status")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestStatusHandlerClientWithoutOrganization(t *testing.T) {
	store, _ := setupStore(t)
	app := newStatusApp(t, store, &auth.Actor{ID: uuid.NewString(), Role: auth.RoleClientViewer})

	code, _ := getStatus(t, app, "/api/integrations/greenhouse/status")
	assert.Equal(t, http.StatusForbidden, code)
}
