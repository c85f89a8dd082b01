package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/internal/pkg/entitlements"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntitlementGrantor applies a paid product to a user's entitlement state.
type EntitlementGrantor interface {
	GrantWindow(ctx context.Context, userID uint, tier entitlements.Tier, d time.Duration) error
	AddCredits(ctx context.Context, userID uint, tier entitlements.Tier, n int) error
}

// RewardCascade pays referral rewards for a paid order.
type RewardCascade interface {
	Apply(ctx context.Context, orderNo string, payerID uint, paidAmount decimal.Decimal) error
}

// Service is the payment reconciliation engine: it verifies gateway
// notifications, drives the order state machine, settles wallet shortfalls
// and fans out entitlements and referral rewards exactly once per order.
type Service struct {
	repo    Repository
	ledger  wallet.Ledger
	grantor EntitlementGrantor
	cascade RewardCascade

	gatewayID string
	secret    string
	submitURL string
	notifyURL string
	returnURL string
}

// Config carries the gateway merchant settings.
type Config struct {
	GatewayID string
	Secret    string
	SubmitURL string
	NotifyURL string
	ReturnURL string
}

func NewService(repo Repository, ledger wallet.Ledger, grantor EntitlementGrantor, cascade RewardCascade, cfg Config) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		grantor:   grantor,
		cascade:   cascade,
		gatewayID: cfg.GatewayID,
		secret:    cfg.Secret,
		submitURL: cfg.SubmitURL,
		notifyURL: cfg.NotifyURL,
		returnURL: cfg.ReturnURL,
	}
}

// NewServiceFromDB wires the engine with its production collaborators.
func NewServiceFromDB(db *gorm.DB, cascade RewardCascade, cfg Config) *Service {
	ledger := wallet.NewLedger(db)
	return NewService(NewRepository(db), ledger, entitlements.NewManager(entitlements.NewStore(db)), cascade, cfg)
}

// minGatewayAmount is the smallest amount the gateway accepts, so a wallet
// portion can never fund an order completely at creation time.
var minGatewayAmount = decimal.NewFromFloat(0.01)

// CreateOrder opens a pending order for the product and returns the signed
// gateway payment URL. When useWallet is set, part of the list price is
// reserved against the wallet balance; the reservation is only settled as
// the shortfall debit when the success callback arrives.
func (s *Service) CreateOrder(ctx context.Context, userID uint, productCode, payType string, useWallet bool) (*models.Order, string, error) {
	product, err := s.repo.GetProductByCode(ctx, productCode)
	if err != nil {
		return nil, "", err
	}
	if product == nil {
		return nil, "", fmt.Errorf("payment: unknown product %q", productCode)
	}

	walletPortion := decimal.Zero
	if useWallet {
		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		maxPortion := product.Price.Sub(minGatewayAmount)
		walletPortion = decimal.Min(balance, maxPortion)
		if walletPortion.Sign() < 0 {
			walletPortion = decimal.Zero
		}
	}

	order := &models.Order{
		OrderNo:       newOrderNo(),
		GatewayID:     s.gatewayID,
		PayType:       payType,
		ProductCode:   product.Code,
		UserID:        userID,
		Amount:        product.Price,
		WalletPortion: walletPortion,
		Status:        models.OrderStatusPending,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, "", err
	}

	payURL := s.buildPayURL(order, product.Name)
	return order, payURL, nil
}

func newOrderNo() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (s *Service) buildPayURL(order *models.Order, productName string) string {
	money := order.Amount.Sub(order.WalletPortion)
	params := map[string]string{
		"pid":          s.gatewayID,
		"type":         order.PayType,
		"out_trade_no": order.OrderNo,
		"notify_url":   s.notifyURL,
		"return_url":   s.returnURL,
		"name":         productName,
		"money":        money.StringFixed(2),
	}
	params["sign"] = Sign(params, s.secret)
	params["sign_type"] = SignTypeMD5

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return s.submitURL + "?" + values.Encode()
}

// HandleNotification reconciles one gateway delivery against the order
// ledger. Deliveries are at-least-once and possibly concurrent; the first
// one to observe pending wins, all later ones see a terminal state and
// no-op with Duplicate set.
func (s *Service) HandleNotification(ctx context.Context, params map[string]string) (*Result, error) {
	if !VerifySign(params, s.secret) {
		return nil, ErrInvalidSignature
	}
	n := ParseNotification(params)

	order, err := s.repo.GetOrderByOrderNo(ctx, n.OutTradeNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsTerminal() {
		return &Result{OrderNo: order.OrderNo, Status: order.Status, Duplicate: true}, nil
	}

	if !n.Succeeded() {
		won, err := s.repo.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusFailed, n.TradeNo)
		if err != nil {
			return nil, err
		}
		if !won {
			return s.duplicateResult(ctx, order.OrderNo)
		}
		return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusFailed}, nil
	}

	paidAmount, err := decimal.NewFromString(strings.TrimSpace(n.Money))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, n.Money)
	}

	won, err := s.repo.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusPaid, n.TradeNo)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.duplicateResult(ctx, order.OrderNo)
	}

	// The paid transition is the single atomic fact of payment. Nothing
	// below rolls it back; failures park the order in error_reconciling
	// for the operator instead.
	shortfall := order.Amount.Sub(paidAmount)
	switch {
	case shortfall.Sign() < 0:
		note := fmt.Sprintf("overpayment: list price %s, paid %s", order.Amount.StringFixed(2), paidAmount.StringFixed(2))
		if err := s.repo.MarkOrderError(ctx, order.OrderNo, note); err != nil {
			return nil, err
		}
		return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusErrorReconciling, Note: note}, ErrOverpaymentAnomaly
	case shortfall.Sign() > 0:
		if err := s.ledger.Debit(ctx, order.UserID, shortfall); err != nil {
			if errors.Is(err, wallet.ErrInsufficientBalance) {
				note := fmt.Sprintf("wallet shortfall %s exceeds balance", shortfall.StringFixed(2))
				if markErr := s.repo.MarkOrderError(ctx, order.OrderNo, note); markErr != nil {
					return nil, markErr
				}
				return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusErrorReconciling, Note: note}, ErrInsufficientBalance
			}
			return nil, err
		}
	}

	if err := s.applyEntitlement(ctx, order); err != nil {
		note := fmt.Sprintf("entitlement grant failed: %v", err)
		if markErr := s.repo.MarkOrderError(ctx, order.OrderNo, note); markErr != nil {
			return nil, markErr
		}
		return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusErrorReconciling, Note: note}, err
	}

	if err := s.cascade.Apply(ctx, order.OrderNo, order.UserID, paidAmount); err != nil {
		note := fmt.Sprintf("referral cascade failed: %v", err)
		if markErr := s.repo.MarkOrderError(ctx, order.OrderNo, note); markErr != nil {
			return nil, markErr
		}
		return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusErrorReconciling, Note: note}, err
	}

	return &Result{OrderNo: order.OrderNo, Status: models.OrderStatusPaid}, nil
}

func (s *Service) duplicateResult(ctx context.Context, orderNo string) (*Result, error) {
	cur, err := s.repo.GetOrderByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrOrderNotFound
	}
	return &Result{OrderNo: cur.OrderNo, Status: cur.Status, Duplicate: true}, nil
}

func (s *Service) applyEntitlement(ctx context.Context, order *models.Order) error {
	product, err := s.repo.GetProductByCode(ctx, order.ProductCode)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("unknown product %q", order.ProductCode)
	}

	tier := entitlements.Tier(product.Tier)
	switch product.Kind {
	case models.ProductKindWindow:
		return s.grantor.GrantWindow(ctx, order.UserID, tier, time.Duration(product.DurationDays)*24*time.Hour)
	case models.ProductKindCredits:
		return s.grantor.AddCredits(ctx, order.UserID, tier, product.CreditCount)
	default:
		return fmt.Errorf("unknown product kind %q", product.Kind)
	}
}

// RecordNotification persists the raw delivery for the audit trail.
func (s *Service) RecordNotification(ctx context.Context, rawQuery string, params map[string]string, signatureValid bool) (*models.PaymentNotification, error) {
	n := &models.PaymentNotification{
		TradeNo:        params["trade_no"],
		OutTradeNo:     params["out_trade_no"],
		RawQuery:       rawQuery,
		SignatureValid: signatureValid,
	}
	if err := s.repo.LogNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// MarkNotificationProcessed closes the audit record with an optional error.
func (s *Service) MarkNotificationProcessed(ctx context.Context, id uint, processingErr error) error {
	if id == 0 {
		return errors.New("payment: notification id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkNotificationProcessed(ctx, id, errMsg)
}

// VerifyParams exposes signature verification for the return-URL handler.
func (s *Service) VerifyParams(params map[string]string) bool {
	return VerifySign(params, s.secret)
}
