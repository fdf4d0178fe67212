package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/auth"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-billing/app/metrics"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (c *BillingController) ProvisionUser(ctx echo.Context) error {
	req, err := types.NewProvisionUserRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	user, err := c.billingService.ProvisionUser(ctx.Request().Context(), auth.PrincipalFromEcho(ctx), req.Name)
	if err != nil {
		return c.handleServiceError(ctx, err, "Provision user failed")
	}

	return ctx.JSON(http.StatusOK, &types.UserResponse{User: mapper.UserToType(user)})
}

func (c *BillingController) GetMySubscription(ctx echo.Context) error {
	sub, err := c.billingService.GetMySubscription(ctx.Request().Context(), auth.PrincipalFromEcho(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "Get subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionResponse{Subscription: mapper.SubscriptionToType(sub)})
}

func (c *BillingController) CancelMySubscription(ctx echo.Context) error {
	sub, err := c.billingService.CancelMySubscription(ctx.Request().Context(), auth.PrincipalFromEcho(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "Cancel subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionResponse{Subscription: mapper.SubscriptionToType(sub)})
}

func (c *BillingController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.billingService.CreatePaymentTransaction(ctx.Request().Context(), auth.PrincipalFromEcho(ctx), req.Plan)
	if err != nil {
		return c.handleServiceError(ctx, err, "Create payment failed")
	}

	return ctx.JSON(http.StatusCreated, &types.CreatePaymentResponse{
		TransactionId: res.TransactionID,
		PaymentUrl:    res.PaymentURL,
	})
}

func (c *BillingController) ListMyTransactions(ctx echo.Context) error {
	items, err := c.billingService.ListMyTransactions(ctx.Request().Context(), auth.PrincipalFromEcho(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "List transactions failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListTransactionsResponse{Transactions: mapper.TransactionsToType(items)})
}

func (c *BillingController) VerifyPayment(ctx echo.Context) error {
	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.billingService.VerifyPayment(ctx.Request().Context(), req.TransactionId)
	if err != nil {
		return c.handleServiceError(ctx, err, "Verify payment failed")
	}

	return ctx.JSON(http.StatusOK, mapper.VerifyResultToType(res))
}

// VerifyLookup serves the gateway redirect landing page.
func (c *BillingController) VerifyLookup(ctx echo.Context) error {
	req, err := types.NewVerifyLookupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	var res *service.VerifyResult
	if req.TransactionId != "" {
		res, err = c.billingService.VerifyPayment(ctx.Request().Context(), req.TransactionId)
	} else {
		res, err = c.billingService.VerifyPaymentFromCallback(ctx.Request().Context(), req.InvoiceId)
	}
	if err != nil {
		return c.handleServiceError(ctx, err, "Verify payment lookup failed")
	}

	return ctx.JSON(http.StatusOK, mapper.VerifyResultToType(res))
}

func (c *BillingController) MayarWebhook(ctx echo.Context) error {
	req, err := types.NewMayarWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	res, err := c.billingService.VerifyPaymentFromCallback(ctx.Request().Context(), req.InvoiceId)
	if err != nil {
		return c.handleServiceError(ctx, err, "Handle mayar webhook failed")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"invoice_id": req.InvoiceId,
		"event":      req.Event,
		"status":     res.Status,
	}).Info("Mayar webhook processed")

	return ctx.JSON(http.StatusOK, mapper.VerifyResultToType(res))
}

func (c *BillingController) RunReconcile(ctx echo.Context) error {
	if err := c.billingService.RunReconcileBatch(ctx.Request().Context()); err != nil {
		metrics.IncJobRun("reconcile", "failed")
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Reconcile batch failed")
		return c.writeError(ctx, http.StatusInternalServerError, "reconcile batch finished with errors")
	}
	metrics.IncJobRun("reconcile", "completed")
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Reconcile batch completed"})
}

func (c *BillingController) ListUsers(ctx echo.Context) error {
	req, err := types.NewPageRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid query parameters")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListUsersWithSubscriptions(ctx.Request().Context(), auth.PrincipalFromEcho(ctx), req.Limit, req.Offset)
	if err != nil {
		return c.handleServiceError(ctx, err, "List users failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListUsersResponse{Users: mapper.UsersWithSubscriptionsToType(items)})
}

func (c *BillingController) LogAdminAction(ctx echo.Context) error {
	req, err := types.NewLogAdminActionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	action, err := c.billingService.LogAdminAction(ctx.Request().Context(), auth.PrincipalFromEcho(ctx), req.Action, req.TargetUserId, req.Details)
	if err != nil {
		return c.handleServiceError(ctx, err, "Log admin action failed")
	}

	return ctx.JSON(http.StatusCreated, &types.AdminActionResponse{Action: mapper.AdminActionToType(action)})
}

func (c *BillingController) ListAdminActions(ctx echo.Context) error {
	req, err := types.NewPageRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid query parameters")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListAdminActions(ctx.Request().Context(), auth.PrincipalFromEcho(ctx), req.Limit)
	if err != nil {
		return c.handleServiceError(ctx, err, "List admin actions failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListAdminActionsResponse{Actions: mapper.AdminActionsToType(items)})
}

func (c *BillingController) handleServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return c.writeError(ctx, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrUserNotFound):
		return c.writeError(ctx, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrTransactionNotFound):
		return c.writeError(ctx, http.StatusNotFound, "transaction not found")
	case errors.Is(err, service.ErrSubscriptionNotFound):
		return c.writeError(ctx, http.StatusNotFound, "subscription not found")
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrInvalidPlan):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		return c.writeError(ctx, http.StatusConflict, "transaction cannot be verified in its current state")
	case errors.Is(err, service.ErrVerificationInProgress):
		return c.writeError(ctx, http.StatusConflict, "verification already in progress")
	case errors.Is(err, service.ErrGateway):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(logMessage)
		return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
