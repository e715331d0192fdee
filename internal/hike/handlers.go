package hike

import (
	"errors"
	"fmt"
	"strings"

	"backend-cartorando/internal/gpx"
	"backend-cartorando/internal/mapview"
	"backend-cartorando/internal/shared/geo"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

var validate = validator.New()

func RegisterRoutes(r fiber.Router, repo *Repository, mapCfg mapview.Config, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Hike
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if owner, ok := c.Locals("user_id").(string); ok && owner != "" {
			req.OwnerID = owner
		}
		if req.OwnerID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "owner_id required")
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(validationErrors(err))
		}
		h, err := repo.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(h)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		h, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(h)
	})

	r.Get("/:id/map", func(c *fiber.Ctx) error {
		h, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		cfg := mapCfg
		cfg.Editable = false
		renderer := mapview.New(cfg, nil)
		renderer.Show(h.Polyline)
		return c.JSON(fiber.Map{
			"hike_id":   h.ID,
			"length_km": geo.LengthKm(h.Polyline),
			"map":       renderer.View(),
		})
	})

	r.Get("/:id/track.gpx", func(c *fiber.Ctx) error {
		h, err := repo.Get(c.Context(), c.Params("id"))
		if err != nil {
			return lookupError(err)
		}
		if h.Polyline.Empty() {
			return fiber.NewError(fiber.StatusNotFound, "hike has no track")
		}
		doc, err := gpx.Encode(h.Polyline, h.Title)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.gpx"`, h.ID))
		return c.Send(doc)
	})
}

func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fiber.NewError(fiber.StatusNotFound, "hike not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func validationErrors(err error) fiber.Map {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.Map{"detail": err.Error()}
	}
	fields := map[string][]string{}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = append(fields[name], fe.Error())
	}
	return fiber.Map{"detail": "invalid hike", "fields": fields}
}
