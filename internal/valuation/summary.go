package valuation

import (
	"github.com/kjannette/satsval-backend/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize totals a valuation list. Sums are accumulated in decimal so the
// totals do not drift with the number of rows.
func Summarize(vals []models.Valuation) models.Summary {
	var received, sent, usd, current decimal.Decimal
	for _, v := range vals {
		amt := decimal.NewFromFloat(v.Amount)
		if v.Type == models.TypeSend {
			sent = sent.Add(amt.Neg())
		} else {
			received = received.Add(amt)
		}
		usd = usd.Add(decimal.NewFromFloat(v.USDAmount))
		current = current.Add(decimal.NewFromFloat(v.CurrentUSD))
	}

	return models.Summary{
		Count:       len(vals),
		ReceivedBTC: received.InexactFloat64(),
		SentBTC:     sent.InexactFloat64(),
		USDAmount:   usd.InexactFloat64(),
		CurrentUSD:  current.InexactFloat64(),
		DiffUSD:     current.Sub(usd).InexactFloat64(),
	}
}
