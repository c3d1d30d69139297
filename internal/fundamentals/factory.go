package fundamentals

import (
	"fmt"

	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/store"
)

// New builds the provider named by fundamentals.provider. clk picks the DART
// business year when fundamentals.dart.business_year is unset.
func New(cfg *store.Config, secrets store.Secrets, clk clock.Clock) (interfaces.FundamentalsSource, error) {
	fc := cfg.Fundamentals
	switch fc.Provider {
	case "SAMPLE", "":
		return NewSampleSource(), nil
	case "YAHOO":
		return NewYahooSource(fc.Universe), nil
	case "DART":
		if secrets.DARTAPIKey == "" {
			return nil, fmt.Errorf("provider DART requires %s to be set", fc.APIKeyEnv)
		}
		companies := make([]DARTCompany, 0, len(fc.DART.Companies))
		for _, c := range fc.DART.Companies {
			companies = append(companies, DARTCompany{CorpCode: c.CorpCode, Symbol: c.Symbol, Name: c.Name})
		}
		year := fc.DART.BusinessYr
		if year == "" {
			year = businessYear(clk.Now())
		}
		return NewDARTSource(fc.DART.BaseURL, secrets.DARTAPIKey, year, fc.DART.ReportCode,
			companies, NewYahooSource(nil), fc.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown fundamentals provider %q", fc.Provider)
	}
}
