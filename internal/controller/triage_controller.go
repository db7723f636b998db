package controller

import (
	"encoding/base64"

	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/pkg/apperr"
	"derm-triage-be/internal/pkg/serverutils"
	"derm-triage-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITriageController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	HandleUtterance(ctx *fiber.Ctx) error
	RequestConsent(ctx *fiber.Ctx) error
	RecordConsent(ctx *fiber.Ctx) error
	SubmitImage(ctx *fiber.Ctx) error
	Finalize(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type triageController struct {
	service service.ITriageService
}

func NewTriageController(service service.ITriageService) ITriageController {
	return &triageController{service: service}
}

func (c *triageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/triage/v1")
	h.Post("/session", c.CreateSession)
	h.Get("/session/:id", c.GetSession)
	h.Delete("/session/:id", c.DeleteSession)
	h.Post("/session/:id/utterance", c.HandleUtterance)
	h.Post("/session/:id/consent/request", c.RequestConsent)
	h.Post("/session/:id/consent", c.RecordConsent)
	h.Post("/session/:id/image", c.SubmitImage)
	h.Post("/session/:id/finalize", c.Finalize)
}

func (c *triageController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	res, err := c.service.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *triageController) HandleUtterance(ctx *fiber.Ctx) error {
	var req dto.UtteranceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.HandleUtterance(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success handle utterance", res))
}

func (c *triageController) RequestConsent(ctx *fiber.Ctx) error {
	res, err := c.service.RequestConsent(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success request consent", res))
}

func (c *triageController) RecordConsent(ctx *fiber.Ctx) error {
	var req dto.ConsentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RecordConsent(ctx.Context(), ctx.Params("id"), *req.Granted)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success record consent", res))
}

func (c *triageController) SubmitImage(ctx *fiber.Ctx) error {
	var req dto.SubmitImageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, "image is not valid base64", err)
	}

	res, err := c.service.SubmitImage(ctx.Context(), ctx.Params("id"), image)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit image", res))
}

func (c *triageController) Finalize(ctx *fiber.Ctx) error {
	res, err := c.service.Finalize(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success finalize session", res))
}

func (c *triageController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *triageController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}
