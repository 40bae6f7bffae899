package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joywood/internal/models"
)

const defaultOrderChannel = "Ozon"

// CreateOrderInput registers an order for a known client.
type CreateOrderInput struct {
	ClientID  uuid.UUID
	OrderCode string
	Channel   string
	Amount    decimal.Decimal
	Actor     string
}

// CreateOrderByCodeInput registers an order identified only by its external code.
type CreateOrderByCodeInput struct {
	OrderCode string
	Channel   string
	Amount    decimal.Decimal
	Actor     string
}

// OrderResult summarises what happened to the client aggregate on order creation.
type OrderResult struct {
	Client           *models.Client `json:"client"`
	Order            *models.Order  `json:"order"`
	IsNew            bool           `json:"is_new"`
	IsFirstOrder     bool           `json:"is_first_order"`
	WelcomeGiven     bool           `json:"welcome_given"`
	WelcomeBreed     string         `json:"magnet_given,omitempty"`
	MagnetGivenToday bool           `json:"magnet_given_today"`
	PendingBonuses   []Milestone    `json:"pending_bonuses"`
}

// CreateOrder adds an order to an existing client. The first order of a client
// comes with the welcome magnet.
func (l *Ledger) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	if in.Amount.IsNegative() {
		return nil, invalidInput("amount must not be negative")
	}

	result := &OrderResult{PendingBonuses: []Milestone{}}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := lockClient(tx, in.ClientID)
		if err != nil {
			return err
		}
		result.Client = client

		return l.placeOrder(ctx, tx, client, strings.TrimSpace(in.OrderCode), in.Channel, in.Amount, in.Actor, result)
	})
	if err != nil {
		return nil, err
	}

	l.afterOrder(result)
	return result, nil
}

// CreateOrderByCode adds an order by external code. The client is matched by the
// code prefix (text before the first '-'); unknown prefixes create a new
// unregistered client.
func (l *Ledger) CreateOrderByCode(ctx context.Context, in CreateOrderByCodeInput) (*OrderResult, error) {
	code := strings.TrimSpace(in.OrderCode)
	if utf8.RuneCountInString(code) < 3 {
		return nil, invalidInput("order code must be at least 3 characters")
	}
	if in.Amount.IsNegative() {
		return nil, invalidInput("amount must not be negative")
	}
	prefix, _, _ := strings.Cut(code, "-")
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, invalidInput("order code must start with a client prefix")
	}

	result := &OrderResult{PendingBonuses: []Milestone{}}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCodePrefix(tx, prefix); err != nil {
			return fmt.Errorf("lock code prefix: %w", err)
		}

		var taken int64
		if err := tx.Model(&models.Order{}).Where("order_code = ?", code).Count(&taken).Error; err != nil {
			return fmt.Errorf("check order code: %w", err)
		}
		if taken > 0 {
			return conflict("order %s already exists", code)
		}

		var client models.Client
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(`ozon_order_code = ? OR ozon_order_code LIKE ? ESCAPE '\'`, prefix, likeEscaper.Replace(prefix)+"-%").
			Order("created_at ASC").
			Take(&client).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			client = models.Client{
				Name:          "Client " + prefix,
				Channel:       channelOrDefault(in.Channel),
				OzonOrderCode: &code,
				Registered:    false,
				CreatedBy:     in.Actor,
			}
			if err := tx.Create(&client).Error; err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			result.IsNew = true
		case err != nil:
			return fmt.Errorf("match client: %w", err)
		default:
			if codes := client.OrderCodes(); !slices.Contains(codes, code) {
				joined := strings.Join(append(codes, code), ",")
				if err := tx.Model(&client).Update("ozon_order_code", joined).Error; err != nil {
					return fmt.Errorf("append order code: %w", err)
				}
				client.OzonOrderCode = &joined
			}
		}
		result.Client = &client

		return l.placeOrder(ctx, tx, &client, code, in.Channel, in.Amount, in.Actor, result)
	})
	if err != nil {
		return nil, err
	}

	l.afterOrder(result)
	return result, nil
}

// placeOrder inserts the order and applies the welcome gift and milestone check
// on the caller's transaction. The client row must already be locked.
func (l *Ledger) placeOrder(ctx context.Context, tx *gorm.DB, client *models.Client, code, channel string, amount decimal.Decimal, actor string, result *OrderResult) error {
	var previous int64
	if err := tx.Model(&models.Order{}).Where("client_id = ?", client.ID).Count(&previous).Error; err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	givenToday, err := magnetGivenSince(tx, client.ID, startOfDay(l.now()))
	if err != nil {
		return fmt.Errorf("check magnets today: %w", err)
	}
	result.IsFirstOrder = previous == 0
	result.MagnetGivenToday = givenToday

	order := models.Order{
		ClientID:  client.ID,
		Amount:    amount,
		Channel:   channelOrDefault(channel),
		Status:    models.OrderStatusActive,
		CreatedBy: actor,
	}
	if code != "" {
		order.OrderCode = &code
	}
	if err := tx.Create(&order).Error; err != nil {
		if isDuplicate(err) {
			return conflict("order %s already exists for this client", code)
		}
		return fmt.Errorf("create order: %w", err)
	}
	result.Order = &order

	if result.IsFirstOrder {
		given, err := l.IssueWelcome(ctx, tx, client, &order.ID)
		if err != nil {
			return fmt.Errorf("welcome gift: %w", err)
		}
		if given {
			result.WelcomeGiven = true
			result.WelcomeBreed = l.welcome.Breed
		}
	}

	if client.Registered {
		pending, err := pendingMilestones(tx, client.ID)
		if err != nil {
			return err
		}
		result.PendingBonuses = pending
	}
	return nil
}

func (l *Ledger) afterOrder(result *OrderResult) {
	if result.WelcomeGiven {
		l.invalidateRatings()
	}
	code := ""
	if result.Order.OrderCode != nil {
		code = *result.Order.OrderCode
	}
	log.Printf("[Order] created order %s (%s) for client %s, first=%t welcome=%t", result.Order.ID, code, result.Client.ID, result.IsFirstOrder, result.WelcomeGiven)
}

func channelOrDefault(channel string) string {
	if channel = strings.TrimSpace(channel); channel != "" {
		return channel
	}
	return defaultOrderChannel
}

// DeleteOrderResult lists what was removed together with an order.
type DeleteOrderResult struct {
	MagnetsRemoved []string `json:"magnets_removed"`
	BonusesRemoved []string `json:"bonuses_removed"`
}

// DeleteOrder removes an order with the magnets and bonuses linked to it,
// optionally returning their units to stock.
func (l *Ledger) DeleteOrder(ctx context.Context, orderID uuid.UUID, returnMagnets, returnBonuses bool) (*DeleteOrderResult, error) {
	result := &DeleteOrderResult{MagnetsRemoved: []string{}, BonusesRemoved: []string{}}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Take(&order, "id = ?", orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("order not found")
		}
		if err != nil {
			return err
		}

		var magnets []models.ClientMagnet
		if err := tx.Where("order_id = ?", order.ID).Find(&magnets).Error; err != nil {
			return fmt.Errorf("load order magnets: %w", err)
		}
		for _, m := range magnets {
			if returnMagnets {
				if err := l.guard.Release(ctx, tx, m.Breed); err != nil {
					return err
				}
			}
			if err := tx.Delete(&models.ClientMagnet{}, "id = ?", m.ID).Error; err != nil {
				return fmt.Errorf("delete magnet: %w", err)
			}
			result.MagnetsRemoved = append(result.MagnetsRemoved, m.Breed)
		}

		var bonuses []models.Bonus
		if err := tx.Where("order_id = ?", order.ID).Find(&bonuses).Error; err != nil {
			return fmt.Errorf("load order bonuses: %w", err)
		}
		for _, b := range bonuses {
			if returnBonuses {
				if err := l.guard.ReleaseBonus(ctx, tx, b.Reward); err != nil {
					return err
				}
			}
			if err := tx.Delete(&models.Bonus{}, "id = ?", b.ID).Error; err != nil {
				return fmt.Errorf("delete bonus: %w", err)
			}
			result.BonusesRemoved = append(result.BonusesRemoved, b.Reward)
		}

		return tx.Delete(&models.Order{}, "id = ?", order.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if len(result.MagnetsRemoved) > 0 {
		l.invalidateRatings()
	}
	log.Printf("[Order] deleted order %s: magnets=%v bonuses=%v returned=%t/%t", orderID, result.MagnetsRemoved, result.BonusesRemoved, returnMagnets, returnBonuses)
	return result, nil
}

// UpdateOrderInput carries the order fields a manager may change.
type UpdateOrderInput struct {
	Amount    *decimal.Decimal
	OrderCode *string
	Comment   *string
}

// UpdateOrder changes amount, code or comment of an order. An empty code clears it.
func (l *Ledger) UpdateOrder(ctx context.Context, orderID uuid.UUID, in UpdateOrderInput) (*models.Order, error) {
	updates := map[string]any{}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, invalidInput("amount must not be negative")
		}
		updates["amount"] = *in.Amount
	}
	if in.OrderCode != nil {
		if code := strings.TrimSpace(*in.OrderCode); code != "" {
			updates["order_code"] = code
		} else {
			updates["order_code"] = nil
		}
	}
	if in.Comment != nil {
		updates["comment"] = strings.TrimSpace(*in.Comment)
	}
	if len(updates) == 0 {
		return nil, invalidInput("nothing to update")
	}

	db := l.db.WithContext(ctx)
	res := db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return nil, conflict("order code is already used by this client")
		}
		return nil, fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("order not found")
	}

	var order models.Order
	if err := db.Take(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveMagnetComment stores the manager's note about the magnet sent with an order.
func (l *Ledger) SaveMagnetComment(ctx context.Context, orderID uuid.UUID, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return invalidInput("comment is required")
	}

	res := l.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("magnet_comment", comment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("order not found")
	}
	return nil
}
