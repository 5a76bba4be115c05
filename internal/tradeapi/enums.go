// Package tradeapi defines the wire-level message shapes, enums, and method
// paths of the trade API. The subscription/session core treats these as
// opaque typed payloads; the transport codec handles their encoding.
package tradeapi

// Side is the direction of an order or trade.
type Side int32

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unspecified"
	}
}

// OrderType selects the execution style of an order.
type OrderType int32

const (
	OrderTypeUnspecified OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	OrderTypeMultiLeg
)

// TimeInForce controls how long an order stays working.
type TimeInForce int32

const (
	TimeInForceUnspecified TimeInForce = iota
	TimeInForceDay
	TimeInForceGoodTillCancel
	TimeInForceGoodTillCrossing
	TimeInForceExtendedHours
	TimeInForceOnOpen
	TimeInForceOnClose
	TimeInForceIOC
	TimeInForceFOK
)

// StopCondition triggers a stop order relative to the last price.
type StopCondition int32

const (
	StopConditionUnspecified StopCondition = iota
	StopConditionLastUp
	StopConditionLastDown
)

// OrderStatus is the venue-reported lifecycle state of an order.
type OrderStatus int32

const (
	OrderStatusUnspecified OrderStatus = iota
	OrderStatusNew
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusDoneForDay
	OrderStatusCanceled
	OrderStatusReplaced
	OrderStatusPendingCancel
	OrderStatusRejected
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "new"
	case OrderStatusPartiallyFilled:
		return "partially_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusDoneForDay:
		return "done_for_day"
	case OrderStatusCanceled:
		return "canceled"
	case OrderStatusReplaced:
		return "replaced"
	case OrderStatusPendingCancel:
		return "pending_cancel"
	case OrderStatusRejected:
		return "rejected"
	case OrderStatusExpired:
		return "expired"
	default:
		return "unspecified"
	}
}

// TimeFrame is the bar aggregation interval for candle data.
type TimeFrame int32

const (
	TimeFrameUnspecified TimeFrame = iota
	TimeFrameM1
	TimeFrameM5
	TimeFrameM15
	TimeFrameM30
	TimeFrameH1
	TimeFrameH4
	TimeFrameD1
	TimeFrameW1
	TimeFrameMN1
)

func (tf TimeFrame) String() string {
	switch tf {
	case TimeFrameM1:
		return "M1"
	case TimeFrameM5:
		return "M5"
	case TimeFrameM15:
		return "M15"
	case TimeFrameM30:
		return "M30"
	case TimeFrameH1:
		return "H1"
	case TimeFrameH4:
		return "H4"
	case TimeFrameD1:
		return "D1"
	case TimeFrameW1:
		return "W1"
	case TimeFrameMN1:
		return "MN1"
	default:
		return "unspecified"
	}
}

// DataType restricts the bidirectional order/trade subscription to a subset
// of event kinds.
type DataType int32

const (
	DataTypeAll DataType = iota
	DataTypeOrders
	DataTypeTrades
)
