package controller

import (
	"derm-triage-be/internal/pkg/serverutils"
	"derm-triage-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICaseController interface {
	RegisterRoutes(r fiber.Router)
	ListEscalated(ctx *fiber.Ctx) error
	GetCase(ctx *fiber.Ctx) error
	GetCaseBySession(ctx *fiber.Ctx) error
}

// caseController exposes the case archive to authenticated clinicians.
type caseController struct {
	service service.ICaseService
}

func NewCaseController(service service.ICaseService) ICaseController {
	return &caseController{service: service}
}

func (c *caseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/cases/v1", serverutils.JwtMiddleware)
	h.Get("/escalated", c.ListEscalated)
	h.Get("/session/:sessionId", c.GetCaseBySession)
	h.Get("/:id", c.GetCase)
}

func (c *caseController) ListEscalated(ctx *fiber.Ctx) error {
	res, err := c.service.ListEscalated(ctx.Context(), ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list escalated cases", res))
}

func (c *caseController) GetCase(ctx *fiber.Ctx) error {
	res, err := c.service.GetCase(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case", res))
}

func (c *caseController) GetCaseBySession(ctx *fiber.Ctx) error {
	res, err := c.service.GetCaseBySession(ctx.Context(), ctx.Params("sessionId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case by session", res))
}
