package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"backend-cartorando/internal/auth"
	"backend-cartorando/internal/mapview"
	"backend-cartorando/internal/track"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jackc/pgx/v5"
)

type shapeRequest struct {
	Points  track.Track     `json:"points"`
	GeoJSON json.RawMessage `json:"geojson"`
}

func RegisterRoutes(r fiber.Router, reg *Registry, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Post("/", func(c *fiber.Ctx) error {
		var body struct {
			HikeID string `json:"hike_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.HikeID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "hike_id required")
		}
		s, err := reg.Open(c.Context(), body.HikeID, auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
	})

	r.Get("/:id", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		return c.JSON(s.Snapshot())
	}))

	r.Get("/:id/map", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		return c.JSON(s.View())
	}))

	r.Put("/:id/gpx", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		var (
			res UploadResult
			err error
		)
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			fh, ferr := c.FormFile("file")
			if ferr != nil {
				return fiber.NewError(fiber.StatusBadRequest, "file required")
			}
			f, ferr := fh.Open()
			if ferr != nil {
				return fiber.NewError(fiber.StatusBadRequest, ferr.Error())
			}
			defer f.Close()
			res, err = s.OnFileChosen(c.Context(), fh.Filename, f)
		} else {
			// Query values alias the request buffer; the session keeps name.
			name := utils.CopyString(c.Query("name", "upload.gpx"))
			res, err = s.OnFileChosen(c.Context(), name, bytes.NewReader(c.Body()))
		}
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{
			"accepted": res.Accepted,
			"points":   len(res.Track),
			"session":  s.Snapshot(),
		})
	}))

	r.Delete("/:id/gpx", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		s.OnFileRemoved()
		return c.JSON(s.Snapshot())
	}))

	r.Post("/:id/gestures/:kind", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		var err error
		switch c.Params("kind") {
		case "draw":
			err = s.StartDrawing()
		case "edit":
			err = s.StartEditing()
		case "cancel":
			s.CancelGesture()
		default:
			return fiber.NewError(fiber.StatusNotFound, "unknown gesture")
		}
		if err != nil {
			return httpError(err)
		}
		return c.JSON(s.View())
	}))

	r.Post("/:id/shape", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		var req shapeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		var err error
		if len(req.GeoJSON) > 0 && string(req.GeoJSON) != "null" {
			err = s.FinishShapeGeoJSON(req.GeoJSON)
		} else {
			err = s.OnMapShapeFinalized(req.Points)
		}
		if err != nil {
			return httpError(err)
		}
		return c.JSON(s.Snapshot())
	}))

	r.Post("/:id/submit", withSession(reg, func(c *fiber.Ctx, s *Session) error {
		res, err := s.Submit(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(res)
	}))

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := reg.Close(c.Params("id"), auth.UserID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func withSession(reg *Registry, h func(*fiber.Ctx, *Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := reg.Get(c.Params("id"), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return h(c, s)
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, pgx.ErrNoRows):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, mapview.ErrNotEditable),
		errors.Is(err, mapview.ErrGestureInProgress),
		errors.Is(err, mapview.ErrNoGesture),
		errors.Is(err, mapview.ErrNothingToEdit):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, mapview.ErrEmptyShape),
		errors.Is(err, mapview.ErrUnsupportedGeometry),
		errors.Is(err, mapview.ErrInvalidGeoJSON):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
