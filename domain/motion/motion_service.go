package motion

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
)

// DefaultTimeout bounds how long a request waits for its command
const DefaultTimeout = 30 * time.Second

// MotionService exposes driver commands over HTTP
type MotionService struct {
	registry *machine.Registry
	director *processing.Director
	logger   customlog.Logger
	timeout  time.Duration
}

// NewMotionService creates a new motion service instance
func NewMotionService(registry *machine.Registry, director *processing.Director, logger customlog.Logger) *MotionService {
	return &MotionService{
		registry: registry,
		director: director,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
}

// RegisterRoutes mounts the motion endpoints on router
func (s *MotionService) RegisterRoutes(router fiber.Router) {
	router.Post("/heads/:id/home", s.HomeHandler)
	router.Get("/mountables/:id/location", s.LocationHandler)
	router.Post("/mountables/:id/move", s.MoveHandler)
	router.Post("/nozzles/:id/pick", s.PickHandler)
	router.Post("/nozzles/:id/place", s.PlaceHandler)
	router.Post("/actuators/:id/actuate", s.ActuateHandler)
	router.Put("/machine/enabled", s.EnabledHandler)
}

// HomeHandler homes a head
func (s *MotionService) HomeHandler(c *fiber.Ctx) error {
	return s.run(c, processing.KindHome, &processing.CommandRequest{HeadID: c.Params("id")})
}

// LocationHandler returns the absolute location of a mountable
func (s *MotionService) LocationHandler(c *fiber.Ctx) error {
	req := &processing.CommandRequest{MountableID: c.Params("id")}
	result, err := s.execute(c, processing.KindGetLocation, req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(processing.NewLocationResponse(result))
}

// MoveHandler moves a mountable. Axes missing from the body keep their value.
func (s *MotionService) MoveHandler(c *fiber.Ctx) error {
	var req processing.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	req.MountableID = c.Params("id")
	return s.run(c, processing.KindMoveTo, &req)
}

// PickHandler picks with a nozzle
func (s *MotionService) PickHandler(c *fiber.Ctx) error {
	return s.run(c, processing.KindPick, &processing.CommandRequest{MountableID: c.Params("id")})
}

// PlaceHandler places with a nozzle
func (s *MotionService) PlaceHandler(c *fiber.Ctx) error {
	return s.run(c, processing.KindPlace, &processing.CommandRequest{MountableID: c.Params("id")})
}

// ActuateHandler drives an actuator with {"value": v} or {"on": b}
func (s *MotionService) ActuateHandler(c *fiber.Ctx) error {
	var req processing.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	req.MountableID = c.Params("id")
	return s.run(c, processing.KindActuate, &req)
}

// EnabledHandler sets the machine enable state from {"enabled": b}
func (s *MotionService) EnabledHandler(c *fiber.Ctx) error {
	var req processing.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return s.run(c, processing.KindSetEnabled, &processing.CommandRequest{Enabled: req.Enabled})
}

func (s *MotionService) execute(c *fiber.Ctx, kind processing.Kind, req *processing.CommandRequest) (*processing.Result, error) {
	cmd, err := req.Build(kind, s.registry)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()
	return s.director.Execute(ctx, cmd)
}

func (s *MotionService) run(c *fiber.Ctx, kind processing.Kind, req *processing.CommandRequest) error {
	result, err := s.execute(c, kind, req)
	if err != nil {
		return s.fail(c, err)
	}

	response := fiber.Map{
		"status":     "ok",
		"command_id": result.Command.ID,
	}
	if loc := processing.NewLocationResponse(result); loc != nil {
		response["location"] = loc
	}
	return c.JSON(response)
}

func (s *MotionService) fail(c *fiber.Ctx, err error) error {
	status := processing.ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Errorf("Motion request %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
