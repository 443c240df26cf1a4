package schema

import "time"

const SearchEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.search",
	"name": "search_event",
	"fields": [
		{"name": "term", "type": "string"},
		{"name": "uid", "type": "string"},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

const OrderEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.orders",
	"name": "order_event",
	"fields": [
		{"name": "order_id", "type": "string"},
		{"name": "uid", "type": "string"},
		{"name": "email", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "items", "type": {
			"type": "array",
			"items": {
				"type": "record",
				"name": "order_item",
				"fields": [
					{"name": "product_id", "type": "string"},
					{"name": "name", "type": "string"},
					{"name": "size", "type": "string"},
					{"name": "quantity", "type": "int"},
					{"name": "amount", "type": "double"}
				]
			}
		}},
		{"name": "total", "type": "double"},
		{"name": "discount", "type": "double"},
		{"name": "delivery_fee", "type": "double"},
		{"name": "sum", "type": "double"},
		{"name": "placed_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type SearchEventV1 struct {
	Term       string    `avro:"term"`
	UID        string    `avro:"uid"`
	OccurredAt time.Time `avro:"occurred_at"`
}

type (
	OrderEventV1 struct {
		OrderID     string             `avro:"order_id"`
		UID         string             `avro:"uid"`
		Email       string             `avro:"email"`
		Name        string             `avro:"name"`
		Items       []OrderEventItemV1 `avro:"items"`
		Total       float64            `avro:"total"`
		Discount    float64            `avro:"discount"`
		DeliveryFee float64            `avro:"delivery_fee"`
		Sum         float64            `avro:"sum"`
		PlacedAt    time.Time          `avro:"placed_at"`
	}

	OrderEventItemV1 struct {
		ProductID string  `avro:"product_id"`
		Name      string  `avro:"name"`
		Size      string  `avro:"size"`
		Quantity  int     `avro:"quantity"`
		Amount    float64 `avro:"amount"`
	}
)
