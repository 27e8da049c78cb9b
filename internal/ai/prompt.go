package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an experienced trading analyst covering Forex, Commodities and Crypto markets. Always respond in valid JSON.`

func BuildUserPrompt(snap *MarketSnapshot) string {
	var sb strings.Builder

	sb.WriteString("You are a professional trading analyst. Analyze the following market data and provide a trading signal.\n\n")

	sb.WriteString("MARKET DATA:\n")
	sb.WriteString(fmt.Sprintf("- Pair: %s\n", snap.Symbol))
	sb.WriteString(fmt.Sprintf("- Current Price: %g\n", snap.Price))
	sb.WriteString(fmt.Sprintf("- 24h High: %g\n", snap.High24h))
	sb.WriteString(fmt.Sprintf("- 24h Low: %g\n", snap.Low24h))
	sb.WriteString(fmt.Sprintf("- 24h Change: %g%%\n", snap.ChangePercent))
	sb.WriteString(fmt.Sprintf("- Timeframe: %s\n\n", snap.Timeframe))

	sb.WriteString(`ANALYSIS RULES:
1. If the change is negative and the price is near the 24h low, consider BUY (oversold)
2. If the change is positive and the price is near the 24h high, consider SELL (overbought)
3. If there is no clear setup, return HOLD
4. Confidence must be between 60-95 for clear signals, and below 50 for HOLD
5. Stop loss must be within 1-3% of the entry price
6. Take profit must give a minimum 1:1.5 risk/reward ratio

Respond ONLY with valid JSON in this format:
{
  "signal_type": "BUY" | "SELL" | "HOLD",
  "confidence": number between 0-100,
  "entry_price": entry price,
  "stop_loss": stop loss price,
  "take_profit": take profit price,
  "reasons": ["reason 1", "reason 2", "reason 3"],
  "analysis_summary": "one-sentence summary of the analysis"
}`)

	return sb.String()
}
