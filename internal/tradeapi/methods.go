package tradeapi

// Full gRPC method paths for every call the client issues. Grouped by
// service, matching the venue's tradeapi.v1 surface.
const (
	// AuthService
	MethodAuth         = "/tradeapi.v1.AuthService/Auth"
	MethodTokenDetails = "/tradeapi.v1.AuthService/TokenDetails"

	// AccountsService
	MethodGetAccount   = "/tradeapi.v1.AccountsService/GetAccount"
	MethodTrades       = "/tradeapi.v1.AccountsService/Trades"
	MethodTransactions = "/tradeapi.v1.AccountsService/Transactions"

	// AssetsService
	MethodAssets         = "/tradeapi.v1.AssetsService/Assets"
	MethodClock          = "/tradeapi.v1.AssetsService/Clock"
	MethodExchanges      = "/tradeapi.v1.AssetsService/Exchanges"
	MethodGetAsset       = "/tradeapi.v1.AssetsService/GetAsset"
	MethodGetAssetParams = "/tradeapi.v1.AssetsService/GetAssetParams"
	MethodOptionsChain   = "/tradeapi.v1.AssetsService/OptionsChain"
	MethodSchedule       = "/tradeapi.v1.AssetsService/Schedule"

	// OrdersService
	MethodPlaceOrder          = "/tradeapi.v1.OrdersService/PlaceOrder"
	MethodCancelOrder         = "/tradeapi.v1.OrdersService/CancelOrder"
	MethodGetOrder            = "/tradeapi.v1.OrdersService/GetOrder"
	MethodGetOrders           = "/tradeapi.v1.OrdersService/GetOrders"
	MethodSubscribeOrderTrade = "/tradeapi.v1.OrdersService/SubscribeOrderTrade"

	// MarketDataService
	MethodBars                  = "/tradeapi.v1.MarketDataService/Bars"
	MethodLastQuote             = "/tradeapi.v1.MarketDataService/LastQuote"
	MethodLatestTrades          = "/tradeapi.v1.MarketDataService/LatestTrades"
	MethodOrderBook             = "/tradeapi.v1.MarketDataService/OrderBook"
	MethodSubscribeQuote        = "/tradeapi.v1.MarketDataService/SubscribeQuote"
	MethodSubscribeOrderBook    = "/tradeapi.v1.MarketDataService/SubscribeOrderBook"
	MethodSubscribeLatestTrades = "/tradeapi.v1.MarketDataService/SubscribeLatestTrades"
	MethodSubscribeBars         = "/tradeapi.v1.MarketDataService/SubscribeBars"

	// UsageMetricsService
	MethodGetUsageMetrics = "/tradeapi.v1.UsageMetricsService/GetUsageMetrics"
)
