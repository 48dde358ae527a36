package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/hireloop/portal-auth"
	"github.com/hireloop/portal-auth/client"
)

// the stored expiry on the client is advisory, the server decides
func TestClientSessionIsNotAuthoritative(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		end      func(t *testing.T, f *fixture, api *client.API, token string)
		textCode string
	}{
		{
			name:  "logged out",
			email: "viewer@acme.test",
			end: func(t *testing.T, f *fixture, api *client.API, token string) {
				require.NoError(t, api.Logout(ctx, token))
			},
			textCode: auth.TextCodeTokenRevoked,
		},
		{
			name:  "disabled by an admin",
			email: "boss@acme.test",
			end: func(t *testing.T, f *fixture, api *client.API, token string) {
				root := f.login(t, "root@portal.test")
				code, _ := f.do(t, http.MethodPut, "/users/boss@acme.test/status", root, map[string]string{"status": "disabled"})
				require.Equal(t, http.StatusOK, code)
			},
			textCode: auth.TextCodeSessionStale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			srv := httptest.NewServer(adaptor.FiberApp(f.app.Fiber))
			defer srv.Close()

			api := client.NewAPI(srv.URL, srv.Client())
			session := client.NewSessionContext(nil)

			resp, err := api.Login(ctx, tt.email, testPassword)
			require.NoError(t, err)
			stored, err := session.Init(resp)
			require.NoError(t, err)

			code, _ := f.do(t, http.MethodGet, "/me", stored.Token, nil)
			require.Equal(t, http.StatusOK, code)

			tt.end(t, f, api, stored.Token)

			current, ok := session.Current()
			require.True(t, ok, "local expiry has not passed")
			assert.Equal(t, stored.Token, current.Token)

			code, body := f.do(t, http.MethodGet, "/me", current.Token, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, tt.textCode, body["code"])
		})
	}
}
