package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

// quantityPrecision is the number of decimals sent on order quantities.
const quantityPrecision = 6

// BinanceAdapter implements the market data, order gateway and account
// capabilities on top of the Binance spot REST API. All responses are
// normalized into domain values; transport faults never reach the core as raw
// errors. GetBars softens to an empty series and GetTicker to an absent price.
type BinanceAdapter struct {
	client     *binance.Client
	quoteAsset string
	logger     *zap.Logger
}

func NewBinanceAdapter(apiKey, apiSecret, baseURL, quoteAsset string, logger *zap.Logger) *BinanceAdapter {
	client := binance.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceAdapter{
		client:     client,
		quoteAsset: quoteAsset,
		logger:     logger,
	}
}

func (a *BinanceAdapter) GetBars(ctx context.Context, symbol, interval string, limit int) domain.BarSeries {
	if limit <= 0 {
		limit = 100
	}
	klines, err := a.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		a.logger.Warn("Failed to fetch candles", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	bars := make(domain.BarSeries, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   parseFloat(k.Open),
			High:   parseFloat(k.High),
			Low:    parseFloat(k.Low),
			Close:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	return bars
}

func (a *BinanceAdapter) GetTicker(ctx context.Context, symbol string) (float64, bool) {
	prices, err := a.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil || len(prices) == 0 {
		if err != nil {
			a.logger.Warn("Failed to fetch ticker", zap.String("symbol", symbol), zap.Error(err))
		}
		return 0, false
	}
	price := parseFloat(prices[0].Price)
	if price <= 0 {
		return 0, false
	}
	return price, true
}

func (a *BinanceAdapter) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Direction, quantity float64) (*domain.OrderConfirmation, error) {
	var sideType binance.SideType
	switch side {
	case domain.DirectionBuy:
		sideType = binance.SideTypeBuy
	case domain.DirectionSell:
		sideType = binance.SideTypeSell
	default:
		return nil, nil
	}

	qty := decimal.NewFromFloat(quantity).Truncate(quantityPrecision)
	clientOrderID := uuid.NewString()

	res, err := a.client.NewCreateOrderService().
		Symbol(symbol).
		Side(sideType).
		Type(binance.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.OrderConfirmation{
		OrderID:  strconv.FormatInt(res.OrderID, 10),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Time:     time.UnixMilli(res.TransactTime).UTC(),
	}, nil
}

// Account computes equity as quote cash plus the quote value of every held
// asset, priced from the full ticker list in one call.
func (a *BinanceAdapter) Account(ctx context.Context) (domain.AccountSnapshot, error) {
	acct, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	prices, err := a.client.NewListPricesService().Do(ctx)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	priceBySymbol := make(map[string]float64, len(prices))
	for _, p := range prices {
		if p != nil {
			priceBySymbol[p.Symbol] = parseFloat(p.Price)
		}
	}

	var equity, cash float64
	for _, b := range acct.Balances {
		amount := parseFloat(b.Free) + parseFloat(b.Locked)
		if amount <= 0 {
			continue
		}
		if b.Asset == a.quoteAsset {
			cash += amount
			equity += amount
			continue
		}
		if price, ok := priceBySymbol[b.Asset+a.quoteAsset]; ok && price > 0 {
			equity += amount * price
		}
	}
	return domain.AccountSnapshot{Equity: equity, Cash: cash}, nil
}

func (a *BinanceAdapter) Balances(ctx context.Context) (map[string]float64, error) {
	acct, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(acct.Balances))
	for _, b := range acct.Balances {
		amount := parseFloat(b.Free) + parseFloat(b.Locked)
		if amount > 0 {
			out[b.Asset] = amount
		}
	}
	return out, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
