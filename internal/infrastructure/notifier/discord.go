package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	colorGreen  = 0x00FF00
	colorRed    = 0xFF0000
	colorOrange = 0xFFAA00
	colorCyan   = 0x00D9FF
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// DiscordNotifier posts embeds to a Discord webhook. A missing webhook URL
// disables it; send failures are logged and never surfaced to callers.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewDiscordNotifier(webhookURL string, logger *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *DiscordNotifier) Enabled() bool {
	return n.webhookURL != ""
}

func (n *DiscordNotifier) send(e embed) {
	if !n.Enabled() {
		return
	}
	e.Footer = embedFooter{Text: "Crypto Momentum Bot"}
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(map[string]any{"embeds": []embed{e}})
	if err != nil {
		n.logger.Error("Failed to marshal Discord payload", zap.Error(err))
		return
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("Failed to send Discord notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Error("Discord webhook rejected", zap.Int("status", resp.StatusCode))
	}
}

func (n *DiscordNotifier) SendTrade(event domain.TradeEvent) {
	color := colorGreen
	if event.Action == domain.DirectionSell {
		color = colorRed
	}

	confirmations := make([]string, 0, len(event.Confirmations))
	for i, c := range event.Confirmations {
		if i >= 5 {
			break
		}
		confirmations = append(confirmations, "✓ "+c)
	}
	confText := strings.Join(confirmations, "\n")
	if confText == "" {
		confText = "None"
	}

	n.send(embed{
		Title: fmt.Sprintf("%s Signal Executed", event.Action),
		Color: color,
		Fields: []embedField{
			{Name: "Symbol", Value: event.Symbol, Inline: true},
			{Name: "Quantity", Value: fmt.Sprintf("%.4f", event.Quantity), Inline: true},
			{Name: "Price", Value: fmt.Sprintf("$%.2f", event.Price), Inline: true},
			{Name: "Signal Strength", Value: fmt.Sprintf("%d/100", event.Strength), Inline: true},
			{Name: "Position Value", Value: fmt.Sprintf("$%.2f", event.Quantity*event.Price), Inline: true},
			{Name: "Confirmations", Value: confText, Inline: false},
		},
	})
}

func (n *DiscordNotifier) SendPositionClosed(event domain.TradeEvent) {
	color := colorGreen
	result := "WIN"
	if event.RealizedPL <= 0 {
		color = colorRed
		result = "LOSS"
	}

	n.send(embed{
		Title: "Position Closed - " + result,
		Color: color,
		Fields: []embedField{
			{Name: "Symbol", Value: event.Symbol, Inline: true},
			{Name: "Quantity", Value: fmt.Sprintf("%.4f", event.Quantity), Inline: true},
			{Name: "Entry Price", Value: fmt.Sprintf("$%.2f", event.EntryPrice), Inline: true},
			{Name: "Exit Price", Value: fmt.Sprintf("$%.2f", event.Price), Inline: true},
			{Name: "Profit/Loss", Value: fmt.Sprintf("$%+.2f", event.RealizedPL), Inline: true},
			{Name: "P/L %", Value: fmt.Sprintf("%+.2f%%", event.RealizedPLPercent), Inline: true},
		},
	})
}

func (n *DiscordNotifier) NotifyError(kind, message, symbol string) {
	if symbol == "" {
		symbol = "N/A"
	}
	if len(message) > 1000 {
		message = message[:1000]
	}
	n.send(embed{
		Title: "Error Alert",
		Color: colorOrange,
		Fields: []embedField{
			{Name: "Error Type", Value: kind, Inline: true},
			{Name: "Symbol", Value: symbol, Inline: true},
			{Name: "Message", Value: message, Inline: false},
		},
	})
}

func (n *DiscordNotifier) SendDailySummary(stats domain.Stats, portfolio domain.PortfolioSnapshot) {
	color := colorGreen
	if portfolio.DailyPL < 0 {
		color = colorRed
	}
	n.send(embed{
		Title: "Daily Summary - " + time.Now().Format("January 2, 2006"),
		Color: color,
		Fields: []embedField{
			{Name: "Portfolio", Value: fmt.Sprintf("$%.2f", portfolio.Equity), Inline: true},
			{Name: "Daily P/L", Value: fmt.Sprintf("$%+.2f (%+.2f%%)", portfolio.DailyPL, portfolio.DailyPLPercent), Inline: true},
			{Name: "Open Positions", Value: fmt.Sprintf("%d", portfolio.OpenPositions), Inline: true},
			{Name: "Total Trades", Value: fmt.Sprintf("%d", stats.TotalTrades), Inline: true},
			{Name: "Wins / Losses", Value: fmt.Sprintf("%d / %d", stats.WinningTrades, stats.LosingTrades), Inline: true},
			{Name: "Win Rate", Value: fmt.Sprintf("%.1f%%", stats.WinRate), Inline: true},
			{Name: "Total P/L Today", Value: fmt.Sprintf("$%+.2f", stats.TotalPL), Inline: false},
		},
	})
}

func (n *DiscordNotifier) SendStartup(equity float64, symbols []string) {
	n.send(embed{
		Title: "Trading Bot Started",
		Color: colorCyan,
		Fields: []embedField{
			{Name: "Status", Value: "Active", Inline: true},
			{Name: "Starting Equity", Value: fmt.Sprintf("$%.2f", equity), Inline: true},
			{Name: "Trading Pairs", Value: fmt.Sprintf("%d symbols", len(symbols)), Inline: true},
			{Name: "Symbols", Value: strings.Join(symbols, ", "), Inline: false},
		},
	})
}

func (n *DiscordNotifier) SendShutdown(equity float64, stats domain.Stats) {
	n.send(embed{
		Title: "Trading Bot Stopped",
		Color: colorRed,
		Fields: []embedField{
			{Name: "Status", Value: "Shutdown", Inline: true},
			{Name: "Final Equity", Value: fmt.Sprintf("$%.2f", equity), Inline: true},
			{Name: "Lifetime Trades", Value: fmt.Sprintf("%d", stats.LifetimeTotal), Inline: true},
			{Name: "Lifetime Win Rate", Value: fmt.Sprintf("%.1f%%", stats.LifetimeWinRate), Inline: true},
		},
	})
}

// TradeObserver adapts a trading-channel notifier to the engine's observer
// contract: buys become trade embeds, sells become position-closed embeds.
// Calls run on the engine goroutine, so each send is dispatched async.
type TradeObserver struct {
	notifier *DiscordNotifier
}

func NewTradeObserver(n *DiscordNotifier) *TradeObserver {
	return &TradeObserver{notifier: n}
}

func (o *TradeObserver) OnTrade(event domain.TradeEvent) {
	go func() {
		if event.Action == domain.DirectionSell {
			o.notifier.SendPositionClosed(event)
			return
		}
		o.notifier.SendTrade(event)
	}()
}

func (o *TradeObserver) OnSignal(domain.Signal)                     {}
func (o *TradeObserver) OnPortfolioUpdate(domain.PortfolioSnapshot) {}
func (o *TradeObserver) OnStatsUpdate(domain.Stats)                 {}
func (o *TradeObserver) OnMarketHeat([]domain.HeatEntry)            {}
