// Package journal defines the one-line text encoding of a trade record shared
// by every journal backend, plus an in-memory journal used for replays.
package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paperTradingBot/internal/domain"
	"paperTradingBot/internal/ports"
)

// Format renders rec as a single line of space separated key=value fields,
// led by the RFC 3339 trade time. The line carries no trailing newline.
func Format(rec domain.TradeRecord) string {
	b := rec.Balance
	var sb strings.Builder
	sb.WriteString(rec.Time.UTC().Format(time.RFC3339Nano))
	for _, kv := range [][2]string{
		{"id", rec.ID},
		{"symbol", rec.Symbol},
		{"action", string(rec.Action)},
		{"reason", string(rec.Reason)},
		{"price", rec.Price.String()},
		{"qty", rec.Quantity.String()},
		{"gross", rec.GrossAmount.String()},
		{"fee", rec.Fee.String()},
		{"net", rec.NetAmount.String()},
		{"pnl", rec.ProfitLoss.String()},
		{"cash", b.Cash.String()},
		{"asset", b.AssetQty.String()},
		{"total", b.TotalValue.String()},
		{"realized", b.RealizedProfit.String()},
		{"drawdown", b.DrawdownPct.StringFixed(4)},
		{"max_drawdown", b.MaxDrawdownPct.StringFixed(4)},
		{"trades", strconv.Itoa(b.TradeCount)},
		{"wins", strconv.Itoa(b.WinCount)},
		{"losses", strconv.Itoa(b.LossCount)},
	} {
		sb.WriteByte(' ')
		sb.WriteString(kv[0])
		sb.WriteByte('=')
		sb.WriteString(kv[1])
	}
	return sb.String()
}

// Parse reads a line written by Format. Unknown keys are ignored.
func Parse(line string) (domain.TradeRecord, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return domain.TradeRecord{}, fmt.Errorf("empty journal line: %w", ports.ErrInvalidRequest)
	}

	var rec domain.TradeRecord
	t, err := time.Parse(time.RFC3339Nano, fields[0])
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("journal line time %q: %v: %w", fields[0], err, ports.ErrInvalidRequest)
	}
	rec.Time = t

	kv := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return domain.TradeRecord{}, fmt.Errorf("journal field %q is not key=value: %w", f, ports.ErrInvalidRequest)
		}
		kv[k] = v
	}

	rec.ID = kv["id"]
	rec.Symbol = kv["symbol"]
	rec.Action = domain.OrderSide(kv["action"])
	rec.Reason = domain.Reason(kv["reason"])
	if rec.Action != domain.Buy && rec.Action != domain.Sell {
		return domain.TradeRecord{}, fmt.Errorf("journal line action %q: %w", rec.Action, ports.ErrInvalidRequest)
	}

	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"price", &rec.Price},
		{"qty", &rec.Quantity},
		{"gross", &rec.GrossAmount},
		{"fee", &rec.Fee},
		{"net", &rec.NetAmount},
		{"pnl", &rec.ProfitLoss},
		{"cash", &rec.Balance.Cash},
		{"asset", &rec.Balance.AssetQty},
		{"total", &rec.Balance.TotalValue},
		{"realized", &rec.Balance.RealizedProfit},
		{"drawdown", &rec.Balance.DrawdownPct},
		{"max_drawdown", &rec.Balance.MaxDrawdownPct},
	}
	for _, d := range decimals {
		raw, ok := kv[d.key]
		if !ok {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.TradeRecord{}, fmt.Errorf("journal field %s=%q: %v: %w", d.key, raw, err, ports.ErrInvalidRequest)
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"trades", &rec.Balance.TradeCount},
		{"wins", &rec.Balance.WinCount},
		{"losses", &rec.Balance.LossCount},
	}
	for _, n := range ints {
		raw, ok := kv[n.key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.TradeRecord{}, fmt.Errorf("journal field %s=%q: %v: %w", n.key, raw, err, ports.ErrInvalidRequest)
		}
		*n.dst = v
	}
	return rec, nil
}
