package controllers

import (
	"strings"

	"verein-backend/apperr"
	"verein-backend/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// clubContext pulls the authenticated club schema and user id stashed by the
// auth middleware.
func clubContext(c *fiber.Ctx) (schema, userID string, err error) {
	schema, _ = c.Locals("schema").(string)
	userID, _ = c.Locals("userID").(string)
	if schema == "" || userID == "" {
		return "", "", apperr.New(apperr.Unauthenticated, "auth context missing")
	}
	return schema, userID, nil
}

// tenantDB opens a club-scoped session for the request.
func tenantDB(c *fiber.Ctx) (*gorm.DB, string, string, error) {
	schema, userID, err := clubContext(c)
	if err != nil {
		return nil, "", "", err
	}
	db, err := database.GetTenantDB(schema)
	if err != nil {
		return nil, "", "", apperr.New(apperr.Internal, "club database unavailable")
	}
	return db, schema, userID, nil
}

// idemKey returns the caller-supplied Idempotency-Key, or a fresh request id
// when the header is absent (no dedupe across retries in that case).
func idemKey(c *fiber.Ctx) (string, error) {
	key := strings.TrimSpace(c.Get("Idempotency-Key"))
	if key == "" {
		return "req:" + uuid.NewString(), nil
	}
	if len(key) > 128 {
		return "", apperr.New(apperr.InvalidArgument, "Idempotency-Key too long")
	}
	return key, nil
}

// sendJSON writes a coordinator result (already-serialized JSON) verbatim, so
// replays return byte-identical bodies.
func sendJSON(c *fiber.Ctx, status int, raw []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(raw)
}
