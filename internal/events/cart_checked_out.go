package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
)

const (
	CartCheckedOutEventName           = "CartCheckedOut"
	CartCheckedOutEventVersion        = 1
	CartCheckedOutEnvelopedSchemaPath = "contracts/events/cart/CartCheckedOut.v1.enveloped.schema.json"
	StorefrontProducer                = "storefront"
)

type CartCheckedOutEvent struct {
	EventEnvelope
	Payload CartCheckedOutPayload `json:"payload"`
}

// CartCheckedOutPayload carries amounts in whole currency units.
type CartCheckedOutPayload struct {
	CartID      string               `json:"cartId"`
	UserID      string               `json:"userId"`
	SessionID   string               `json:"sessionId,omitempty"`
	Items       []CartCheckedOutItem `json:"items"`
	Subtotal    int64                `json:"subtotal"`
	Shipping    int64                `json:"shipping"`
	Tax         int64                `json:"tax"`
	Discount    int64                `json:"discount"`
	TotalAmount int64                `json:"totalAmount"`
	PromoCode   string               `json:"promoCode,omitempty"`
	Currency    string               `json:"currency"`
	Timestamp   time.Time            `json:"timestamp"`
}

type CartCheckedOutItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

func BuildCartCheckedOutEvent(co cart.Checkout, opts EnvelopeOptions) CartCheckedOutEvent {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = co.CheckedOutAt
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = CartCheckedOutEnvelopedSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}

	partitionKey := opts.PartitionKey
	if partitionKey == "" {
		partitionKey = co.CartID
	}

	payload := CartCheckedOutPayload{
		CartID:      co.CartID,
		UserID:      co.UserID,
		SessionID:   co.SessionID,
		Items:       make([]CartCheckedOutItem, 0, len(co.Cart.Items)),
		Subtotal:    co.Cart.Subtotal,
		Shipping:    co.Cart.Shipping,
		Tax:         co.Cart.Tax,
		Discount:    co.Cart.Discount,
		TotalAmount: co.Cart.Total,
		PromoCode:   co.Cart.PromoCode,
		Currency:    money.CurrencyCode,
		Timestamp:   occurredAt,
	}
	for _, it := range co.Cart.Items {
		payload.Items = append(payload.Items, CartCheckedOutItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		})
	}

	return CartCheckedOutEvent{
		EventEnvelope: EventEnvelope{
			EventName:     CartCheckedOutEventName,
			EventVersion:  CartCheckedOutEventVersion,
			EventID:       eventID,
			CorrelationID: opts.CorrelationID,
			CausationID:   opts.CausationID,
			Producer:      producer,
			PartitionKey:  partitionKey,
			Sequence:      opts.Sequence,
			OccurredAt:    occurredAt,
			Schema:        schemaPath,
		},
		Payload: payload,
	}
}
