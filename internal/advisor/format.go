package advisor

import (
	"fmt"
	"strings"

	"scenario-advisor/internal/types"
)

// DescribeScenario is the registration status message.
func DescribeScenario(sc types.Scenario) string {
	return fmt.Sprintf("Scenario added:\n%s\nInvest: %s\nSymbol: %s\nKeywords: %s\nID: %s",
		sc.Description, sc.Amount.String(), sc.Symbol, sc.Keywords, sc.ID)
}

// FormatNewsEntry renders one news check the way it is shown to the user.
func FormatNewsEntry(e types.NewsLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] scenario %s\n", e.FetchedAt.Format("2006-01-02 15:04:05"), e.ScenarioID)
	switch {
	case e.Error != "":
		fmt.Fprintf(&b, "Request error: %s\n", e.Error)
	case len(e.Items) == 0:
		b.WriteString("No news found\n")
	default:
		for _, it := range e.Items {
			fmt.Fprintf(&b, "%s\n%s\n", it.Title, it.Link)
		}
	}
	return b.String()
}

// FormatTrade renders an order outcome.
func FormatTrade(res types.TradeResult) string {
	status := "rejected"
	if res.Accepted {
		status = "accepted"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s: %s", status, res.Message)
	if res.OrderID != "" {
		fmt.Fprintf(&b, " (order %s)", res.OrderID)
	}
	if res.Degraded {
		b.WriteString(" [signed with local hash]")
	}
	return b.String()
}
