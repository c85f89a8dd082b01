package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/internal/pkg/cache"
	"github.com/lumichat/lumichat/internal/pkg/database"
	"github.com/lumichat/lumichat/internal/pkg/env"
	"github.com/lumichat/lumichat/internal/pkg/middleware"
	"github.com/lumichat/lumichat/internal/pkg/payment"
	"github.com/lumichat/lumichat/internal/pkg/referral"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
	"gorm.io/gorm"
)

const notifyMarkerTTL = 24 * time.Hour

func paymentConfigFromEnv() payment.Config {
	base := env.GetEnv("APP_BASE_URL", "http://localhost:3002")
	return payment.Config{
		GatewayID: env.GetEnv("PAY_GATEWAY_ID", ""),
		Secret:    env.GetEnv("PAY_SECRET", ""),
		SubmitURL: env.GetEnv("PAY_SUBMIT_URL", ""),
		NotifyURL: base + "/api/payment/notify",
		ReturnURL: base + "/api/payment/return",
	}
}

func newPaymentService(db *gorm.DB) *payment.Service {
	cascade := referral.NewCascadeFromEnv(referral.NewRepository(db), wallet.NewLedger(db))
	return payment.NewServiceFromDB(db, cascade, paymentConfigFromEnv())
}

// HandleListProducts returns the active SKUs.
func HandleListProducts(c *fiber.Ctx) error {
	var products []models.Product
	if err := database.GetDB().Where("is_active = ?", true).Order("price asc").Find(&products).Error; err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load products")
	}
	return respondSuccess(c, products)
}

type createOrderRequest struct {
	ProductCode string `json:"product_code"`
	PayType     string `json:"pay_type"`
	UseWallet   bool   `json:"use_wallet"`
}

// HandleCreateOrder opens a pending order and returns the signed gateway
// payment URL.
func HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.ProductCode == "" {
		return respondFail(c, fiber.StatusBadRequest, "product_code is required")
	}
	if req.PayType == "" {
		req.PayType = "alipay"
	}

	svc := newPaymentService(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, payURL, err := svc.CreateOrder(ctx, middleware.UserID(c), req.ProductCode, req.PayType, req.UseWallet)
	if err != nil {
		return respondFail(c, fiber.StatusBadRequest, err.Error())
	}
	return respondSuccess(c, fiber.Map{
		"order_no":       order.OrderNo,
		"amount":         order.Amount,
		"wallet_portion": order.WalletPortion,
		"pay_url":        payURL,
	})
}

// HandlePaymentNotify is the gateway webhook. A success acknowledgement is
// the literal body "success"; anything else makes the gateway retry, which
// the engine's idempotency guard makes safe.
func HandlePaymentNotify(c *fiber.Ctx) error {
	params := notifyParams(c)
	rawQuery := string(c.Request().URI().QueryString())

	// Fast-path replay suppression only; the order ledger stays the guard
	// of record.
	if marker, err := cache.Get(notifyMarkerKey(params["trade_no"])); err == nil && marker != "" {
		return c.SendString("success")
	}

	svc := newPaymentService(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := svc.VerifyParams(params)
	stored, logErr := svc.RecordNotification(ctx, rawQuery, params, signatureValid)
	if logErr != nil {
		log.Printf("failed to record payment notification: %v", logErr)
	}

	res, err := svc.HandleNotification(ctx, params)
	if stored != nil {
		_ = svc.MarkNotificationProcessed(ctx, stored.ID, err)
	}
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			return c.Status(fiber.StatusUnauthorized).SendString("invalid signature")
		case errors.Is(err, payment.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).SendString("order not found")
		case errors.Is(err, payment.ErrInsufficientBalance), errors.Is(err, payment.ErrOverpaymentAnomaly):
			// Parked in error_reconciling; the gateway's retry will land
			// on the terminal state and be acknowledged.
			return c.Status(fiber.StatusConflict).SendString("reconciliation anomaly")
		case errors.Is(err, payment.ErrInvalidAmount):
			return c.Status(fiber.StatusBadRequest).SendString("invalid amount")
		default:
			return c.Status(fiber.StatusInternalServerError).SendString("temporary failure")
		}
	}

	if _, err := cache.SetNX(notifyMarkerKey(params["trade_no"]), res.Status, notifyMarkerTTL); err != nil {
		log.Printf("failed to set notify marker: %v", err)
	}
	return c.SendString("success")
}

// HandlePaymentReturn is the browser redirect target after checkout. It
// only verifies the signature and reports the order number; state changes
// come exclusively from the asynchronous notify.
func HandlePaymentReturn(c *fiber.Ctx) error {
	params := notifyParams(c)
	svc := newPaymentService(database.GetDB())
	if !svc.VerifyParams(params) {
		return respondFail(c, fiber.StatusUnauthorized, "invalid signature")
	}
	return respondSuccess(c, fiber.Map{"order_no": params["out_trade_no"]})
}

func notifyMarkerKey(tradeNo string) string {
	return "payment:notify:" + tradeNo
}

func notifyParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)
	c.Request().URI().QueryArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	return params
}
