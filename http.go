package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/hireloop/portal-auth/middleware/jwtware"
)

// GenericErrorMessage is shown for failures that must not leak details
const GenericErrorMessage = "Something went wrong, please try again."

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message  string `json:"message"`
	TextCode string `json:"code,omitempty"`
}

// NewErrorHandler returns the fiber error handler rendering {message}
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger()
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Message: fiberErr.Message})
		}

		status := HTTPStatus(err)
		resp := ErrorResponse{Message: PublicMessage(err, GenericErrorMessage)}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			resp.TextCode = richErr.TextCode
		}

		if status >= http.StatusInternalServerError {
			resp.TextCode = ""
			args := []any{
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			}
			if richErr != nil && len(richErr.Metadata) > 0 {
				args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
			}
			logger.Error("request failed", args...)
		} else {
			logger.Debug("request rejected",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		}

		return c.Status(status).JSON(resp)
	}
}

// ProtectOption customizes Protect
type ProtectOption func(*protectConfig)

// ActorRefresher reloads the actor resolved from a token before the
// request reaches the handler
type ActorRefresher func(ctx context.Context, actor *Actor) (*Actor, error)

type protectConfig struct {
	jwt     jwtware.Config
	refresh ActorRefresher
}

// WithProtectErrorHandler overrides how authentication failures render
func WithProtectErrorHandler(h fiber.ErrorHandler) ProtectOption {
	return func(cfg *protectConfig) {
		cfg.jwt.ErrorHandler = h
	}
}

// WithValidationListener runs l after the token validated
func WithValidationListener(l jwtware.ValidationListener) ProtectOption {
	return func(cfg *protectConfig) {
		cfg.jwt.ValidationListeners = append(cfg.jwt.ValidationListeners, l)
	}
}

// WithActorRefresher reloads every actor through r, so the stored role,
// organization and status win over what the token carries
func WithActorRefresher(r ActorRefresher) ProtectOption {
	return func(cfg *protectConfig) {
		cfg.refresh = r
	}
}

// Protect is the session authenticator. It extracts the bearer token,
// validates it and attaches the resolved actor to the request, or
// stops the chain with 401.
func Protect(cfg Config, tokens TokenValidator, opts ...ProtectOption) fiber.Handler {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = DefaultContextKey
	}

	pcfg := &protectConfig{
		jwt: jwtware.Config{
			ContextKey:     contextKey,
			TokenLookup:    cfg.GetTokenLookup(),
			AuthScheme:     cfg.GetAuthScheme(),
			TokenValidator: jwtValidator{tokens: tokens},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return unauthenticated(err)
			},
			ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) (context.Context, error) {
				ac, ok := claims.(AuthClaims)
				if !ok {
					return ctx, ErrUnableToDecodeSession
				}
				return WithClaimsContext(ctx, ac), nil
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(pcfg)
		}
	}

	// the actor listener runs first so extra listeners see the resolved actor
	resolve := func(c *fiber.Ctx, claims jwtware.AuthClaims) error {
		ac, ok := claims.(AuthClaims)
		if !ok {
			return ErrUnableToDecodeSession
		}
		actor, err := ActorFromClaims(ac)
		if err != nil {
			return err
		}
		if pcfg.refresh != nil {
			if actor, err = pcfg.refresh(c.UserContext(), actor); err != nil {
				return err
			}
		}
		c.Locals(ActorLocalsKey, actor)
		c.SetUserContext(WithActor(c.UserContext(), actor))
		return nil
	}
	pcfg.jwt.ValidationListeners = append([]jwtware.ValidationListener{resolve}, pcfg.jwt.ValidationListeners...)

	return jwtware.New(pcfg.jwt)
}

type jwtValidator struct {
	tokens TokenValidator
}

func (v jwtValidator) Validate(token string) (jwtware.AuthClaims, error) {
	return v.ValidateContext(context.Background(), token)
}

func (v jwtValidator) ValidateContext(ctx context.Context, token string) (jwtware.AuthClaims, error) {
	claims, err := ValidateWithContext(ctx, v.tokens, token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// unauthenticated maps any authenticator failure onto a 401 rich error
func unauthenticated(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && HTTPStatus(err) == http.StatusUnauthorized {
		return err
	}

	switch {
	case goerrors.Is(err, jwtware.ErrJWTMissingOrMalformed):
		return ErrUnableToFindSession
	case IsTokenExpiredError(err):
		return ErrTokenExpired
	case IsMalformedError(err):
		return ErrTokenMalformed
	}

	if richErr != nil && HTTPStatus(err) >= http.StatusInternalServerError {
		return err
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeSessionDecodeError)
}

// bearerToken extracts the raw token the same way Protect does
func bearerToken(c *fiber.Ctx, cfg Config) (string, error) {
	raw, err := jwtware.ExtractRawToken(c, jwtware.GetExtractors(cfg.GetTokenLookup(), cfg.GetAuthScheme()))
	if err != nil || raw == "" {
		return "", ErrUnableToFindSession
	}
	return raw, nil
}
