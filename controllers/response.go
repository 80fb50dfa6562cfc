package controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/middleware"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func success(ctx *fiber.Ctx, status int, message string, data interface{}) error {
	return ctx.Status(status).JSON(fiber.Map{"success": true, "message": message, "data": data})
}

func failure(ctx *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{"success": false, "message": message}
	if data != nil {
		body["data"] = data
	}
	return ctx.Status(status).JSON(body)
}

// bind parses the JSON body into payload and runs its validate tags.
// The first failing field is reported as a ValidationError.
func bind(ctx *fiber.Ctx, payload interface{}) error {
	if err := ctx.BodyParser(payload); err != nil {
		return &services.ValidationError{Field: "body", Message: err.Error()}
	}
	return check(payload)
}

func check(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		return &services.ValidationError{Field: field, Message: msg}
	}
	return &services.ValidationError{Field: "body", Message: err.Error()}
}

func paramID(ctx *fiber.Ctx, name string) (types.SnowflakeID, error) {
	id, err := types.ParseSnowflakeID(ctx.Params(name))
	if err != nil || id.IsZero() {
		return 0, &services.ValidationError{Field: name, Message: "must be a numeric id"}
	}
	return id, nil
}

func queryID(ctx *fiber.Ctx, name string) (types.SnowflakeID, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := types.ParseSnowflakeID(raw)
	if err != nil {
		return 0, &services.ValidationError{Field: name, Message: "must be a numeric id"}
	}
	return id, nil
}

// runKey reads the consecutive number and site that identify a run in reports.
func runKey(ctx *fiber.Ctx) (int, string, error) {
	consecutive := ctx.QueryInt("consecutive", 0)
	if consecutive <= 0 {
		return 0, "", &services.ValidationError{Field: "consecutive", Message: "must be a positive number"}
	}
	site := strings.TrimSpace(ctx.Query("site"))
	if site == "" {
		return 0, "", &services.ValidationError{Field: "site", Message: "is required"}
	}
	return consecutive, site, nil
}

// actor prefers the token identity over the identity sent in the body.
func actor(ctx *fiber.Ctx, fallback string) string {
	if identity, ok := middleware.IdentityFrom(ctx); ok && identity.Email != "" {
		return identity.Email
	}
	return strings.TrimSpace(fallback)
}

func batchFailures(failures []services.BatchFailure) []fiber.Map {
	out := make([]fiber.Map, 0, len(failures))
	for _, f := range failures {
		out = append(out, fiber.Map{
			"phase": f.Phase,
			"batch": f.Batch,
			"keys":  f.Keys,
			"error": f.Err.Error(),
		})
	}
	return out
}

// handleError maps service errors onto the response envelope.
func handleError(ctx *fiber.Ctx, err error) error {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		ambiguous  *services.AmbiguousMatchError
		conflict   *services.ConflictError
		partial    *services.PartialBatchFailure
	)
	switch {
	case errors.As(err, &validation):
		return failure(ctx, fiber.StatusBadRequest, validation.Error(), fiber.Map{"field": validation.Field})
	case errors.As(err, &notFound):
		return failure(ctx, fiber.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &ambiguous):
		return failure(ctx, fiber.StatusMultipleChoices, ambiguous.Error(), fiber.Map{
			"code":       ambiguous.Code,
			"candidates": ambiguous.Candidates,
		})
	case errors.As(err, &conflict):
		return failure(ctx, fiber.StatusConflict, conflict.Error(), nil)
	case errors.As(err, &partial):
		return failure(ctx, fiber.StatusMultiStatus, partial.Error(), fiber.Map{
			"sync_id":  partial.SyncID,
			"failures": batchFailures(partial.Failures),
		})
	case errors.Is(err, services.ErrConfirmationRequired):
		return failure(ctx, fiber.StatusPreconditionRequired, err.Error(), fiber.Map{"confirmation_required": true})
	default:
		return failure(ctx, fiber.StatusInternalServerError, "Internal server error", fiber.Map{"error": err.Error()})
	}
}
