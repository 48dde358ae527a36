package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// Authenticator is what the auth controller needs from Auther
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, raw string) error
}

type AuthControllerRoutes struct {
	Login  string
	Logout string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Auther Authenticator
	Config Config
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthControllerLogger sets the controller logger
func WithAuthControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

// WithAuthControllerDebug dumps payloads to the debug log
func WithAuthControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func NewAuthController(auther Authenticator, cfg Config, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger(),
		Auther: auther,
		Config: cfg,
		Routes: &AuthControllerRoutes{
			Login:  "/api/auth/login",
			Logout: "/api/auth/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// Register mounts the controller routes. protect guards the routes
// that need a session.
func (a *AuthController) Register(app fiber.Router, protect fiber.Handler) {
	app.Post(a.Routes.Login, a.LoginPost)
	app.Post(a.Routes.Logout, protect, a.LogOut)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		return NewValidationError("Email and password are required.", nil)
	}

	if err := payload.Validate(); err != nil {
		return NewValidationError("Email address is not valid.", err)
	}

	if a.Debug {
		a.Logger.Debug("login attempt", "email", NormalizeEmail(payload.Email))
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	resp := LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}

	if result.User != nil {
		resp.User = NewUserView(result.User)
	} else if result.Identity != nil {
		resp.User = UserView{
			ID:    result.Identity.ID(),
			Email: result.Identity.Email(),
			Role:  result.Identity.Role(),
		}
	}

	if a.Debug {
		a.Logger.Debug("login response", "user", print.MaybePrettyJSON(resp.User))
	}

	return c.JSON(resp)
}

// LogOut revokes the bearer token of the request
func (a *AuthController) LogOut(c *fiber.Ctx) error {
	raw, err := bearerToken(c, a.Config)
	if err != nil {
		return err
	}

	if err := a.Auther.Logout(c.UserContext(), raw); err != nil {
		return err
	}

	return c.JSON(MessageResponse{Message: "Logged out."})
}
