package auth

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// UsersController serves user management and profile routes
type UsersController struct {
	Logger   Logger
	Users    *UserService
	Activity ActivitySink
}

// NewUsersController returns the controller
func NewUsersController(users *UserService, logger Logger) *UsersController {
	if users == nil {
		panic("Missing UserService in users controller...")
	}
	if logger == nil {
		logger = defLogger()
	}
	return &UsersController{Users: users, Logger: logger}
}

// Register mounts the routes behind protect with their role guards.
// :ref is either the user id or the email.
func (u *UsersController) Register(app fiber.Router, protect fiber.Handler) {
	managers := u.guard(RoleAdmin, RoleClientAdmin)
	editors := u.guard(RoleAdmin, RoleClientAdmin, RolePlatformEditor)

	app.Get("/users", protect, managers, u.List)
	app.Get("/users/profile", protect, u.Profile)
	app.Get("/me", protect, u.Me)
	app.Post("/users", protect, managers, u.Create)
	app.Put("/users/:ref", protect, editors, u.Update)
	app.Put("/users/:ref/status", protect, editors, u.UpdateStatus)
	app.Post("/users/:ref/role", protect, managers, u.UpdateRole)
	app.Post("/users/:ref/password", protect, managers, u.ResetPassword)
}

func (u *UsersController) guard(roles ...Role) fiber.Handler {
	if u.Activity == nil {
		return HasRole(roles...)
	}
	return RoleGuard(roles, WithGuardActivitySink(u.Activity))
}

func (u *UsersController) actor(c *fiber.Ctx) (*Actor, error) {
	actor, ok := ActorFromFiber(c)
	if !ok {
		return nil, ErrUnableToFindSession
	}
	return actor, nil
}

func (u *UsersController) List(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	users, err := u.Users.List(c.UserContext(), actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"users": NewUserViews(users)})
}

func (u *UsersController) Profile(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	user, err := u.Users.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}

	return c.JSON(NewProfileView(user))
}

func (u *UsersController) Me(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	user, err := u.Users.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}

	return c.JSON(NewUserView(user))
}

// CreateUserRequest payload
type CreateUserRequest struct {
	Email               string   `json:"email"`
	Password            string   `json:"password"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Role                string   `json:"role"`
	Phone               string   `json:"phone"`
	Plan                string   `json:"plan"`
	OrgID               string   `json:"orgId"`
	AllowedIntegrations []string `json:"allowedIntegrations"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.Required),
	)
}

func (u *UsersController) Create(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	payload := new(CreateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	if err := payload.Validate(); err != nil {
		return NewValidationError("Missing required fields.", err)
	}

	_, err = u.Users.Create(c.UserContext(), actor, CreateUserInput{
		Email:               payload.Email,
		Password:            payload.Password,
		FirstName:           payload.FirstName,
		LastName:            payload.LastName,
		Role:                payload.Role,
		Phone:               payload.Phone,
		Plan:                payload.Plan,
		OrgRef:              payload.OrgID,
		AllowedIntegrations: payload.AllowedIntegrations,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(MessageResponse{Message: "User created successfully."})
}

// UpdateUserRequest payload. Absent fields are left untouched.
type UpdateUserRequest struct {
	FirstName           *string   `json:"firstName"`
	LastName            *string   `json:"lastName"`
	Phone               *string   `json:"phone"`
	Plan                *string   `json:"plan"`
	Role                *string   `json:"role"`
	Status              *string   `json:"status"`
	OrgID               *string   `json:"orgId"`
	AllowedIntegrations *[]string `json:"allowedIntegrations"`
	SetupComplete       *bool     `json:"setupComplete"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In(rolesAsAny()...).Error("Invalid role.")),
		validation.Field(&r.Status, validation.NilOrNotEmpty, validation.In(UserStatusActive, UserStatusDisabled).Error("Invalid status.")),
	)
}

func (u *UsersController) Update(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	payload := new(UpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	if err := payload.Validate(); err != nil {
		return NewValidationError("Invalid user update.", err)
	}

	user, err := u.Users.Update(c.UserContext(), actor, c.Params("ref"), UpdateUserInput{
		FirstName:           payload.FirstName,
		LastName:            payload.LastName,
		Phone:               payload.Phone,
		Plan:                payload.Plan,
		Role:                payload.Role,
		Status:              payload.Status,
		OrgRef:              payload.OrgID,
		AllowedIntegrations: payload.AllowedIntegrations,
		SetupComplete:       payload.SetupComplete,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "User updated.",
		"user":    NewUserView(user),
	})
}

// StatusRequest payload
type StatusRequest struct {
	Status string `json:"status"`
}

func (u *UsersController) UpdateStatus(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	payload := new(StatusRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	if !IsValidStatus(payload.Status) {
		return ErrInvalidStatus
	}

	if _, err := u.Users.SetStatus(c.UserContext(), actor, c.Params("ref"), payload.Status); err != nil {
		return err
	}

	return c.JSON(MessageResponse{
		Message: fmt.Sprintf("User status updated to %s.", payload.Status),
	})
}

// RoleRequest payload
type RoleRequest struct {
	Role string `json:"role"`
}

func (u *UsersController) UpdateRole(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	payload := new(RoleRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	user, err := u.Users.SetRole(c.UserContext(), actor, c.Params("ref"), payload.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Role updated.",
		"role":    user.Role,
	})
}

// PasswordRequest payload
type PasswordRequest struct {
	Password string `json:"password"`
}

func (u *UsersController) ResetPassword(c *fiber.Ctx) error {
	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	payload := new(PasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return NewValidationError("Invalid request body.", err)
	}

	if err := u.Users.ResetPassword(c.UserContext(), actor, c.Params("ref"), payload.Password); err != nil {
		return err
	}

	return c.JSON(MessageResponse{Message: "Password updated successfully."})
}

func rolesAsAny() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, r)
	}
	return out
}
