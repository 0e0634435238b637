package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
)

type gatewayPromos interface {
	FindActivePromotionCode(ctx context.Context, code string) (*stripelib.PromotionCode, error)
	CreatePromotionCode(ctx context.Context, code string, percentOff int64, userID string) (*stripelib.PromotionCode, error)
}

type pointsStore interface {
	GetPoints(ctx context.Context, userID uuid.UUID) (int, error)
	DebitPoints(ctx context.Context, userID uuid.UUID, points int) (bool, error)
}

// Grant is a promotion code ready to attach to a checkout session.
type Grant struct {
	PromotionCodeID string
	Code            string
	// PointsUsed is the loyalty cost the code represents. Reused codes keep
	// the cost of their original mint; points are never debited twice.
	PointsUsed int
}

// Service resolves loyalty discounts for checkout.
type Service interface {
	// Resolve returns the user's loyalty promotion code when they qualify,
	// or nil when they do not. It never fails checkout on its own; gateway
	// errors bubble up for the caller to decide.
	Resolve(ctx context.Context, userID uuid.UUID) (*Grant, error)
}

type service struct {
	gateway gatewayPromos
	points  pointsStore
	cfg     config.PromoConfig
	logg    *logger.Logger
}

// NewService builds the loyalty promo service.
func NewService(gateway gatewayPromos, points pointsStore, cfg config.PromoConfig, logg *logger.Logger) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway promos required")
	}
	if points == nil {
		return nil, fmt.Errorf("points store required")
	}
	return &service{gateway: gateway, points: points, cfg: cfg, logg: logg}, nil
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*Grant, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	code := s.codeFor(userID)

	// An unredeemed code from an earlier attempt is reused as-is. Points were
	// already debited when it was minted, so no second debit happens here.
	existing, err := s.gateway.FindActivePromotionCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Grant{PromotionCodeID: existing.ID, Code: code, PointsUsed: s.cfg.PointsThreshold}, nil
	}

	balance, err := s.points.GetPoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < s.cfg.PointsThreshold {
		return nil, nil
	}

	debited, err := s.points.DebitPoints(ctx, userID, s.cfg.PointsThreshold)
	if err != nil {
		return nil, err
	}
	if !debited {
		// Lost the race to a concurrent spend. Treat as not qualifying.
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("points debit lost race for user %s", userID))
		}
		return nil, nil
	}

	created, err := s.gateway.CreatePromotionCode(ctx, code, int64(s.cfg.PercentOff), userID.String())
	if err != nil {
		return nil, err
	}
	return &Grant{PromotionCodeID: created.ID, Code: code, PointsUsed: s.cfg.PointsThreshold}, nil
}

// codeFor derives a deterministic per-user code so retries converge on the
// same promotion instead of minting duplicates.
func (s *service) codeFor(userID uuid.UUID) string {
	id := strings.ToUpper(strings.ReplaceAll(userID.String(), "-", ""))
	if len(id) > 6 {
		id = id[:6]
	}
	return fmt.Sprintf("%s-%s", s.cfg.CodePrefix, id)
}
