package usecase

import (
	"regexp"
	"strings"
)

// Deterministic keyword screens over extracted text. They never call the
// model backend: results seed the fallback responder so an offline answer
// still reflects the uploaded document where possible.

var metricPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Revenue", regexp.MustCompile(`(?i)(?:revenue|sales)[\s:]*[\$€£¥]?[\d.,]+\s*(?:million|billion|M|B)?`)},
	{"Net Income", regexp.MustCompile(`(?i)net income[\s:]*[\$€£¥]?[-\d.,]+\s*(?:million|billion|M|B)?`)},
	{"EBITDA", regexp.MustCompile(`(?i)EBITDA[\s:]*[\$€£¥]?[-\d.,]+\s*(?:million|billion|M|B|%)?`)},
	{"EPS", regexp.MustCompile(`(?i)EPS[\s:]*[\$€£¥]?[-\d.,]+`)},
	{"P/E Ratio", regexp.MustCompile(`(?i)P[/\s]?E[\s:]*[\d.,]+`)},
	{"Dividend Yield", regexp.MustCompile(`(?i)dividend yield[\s:]*[\d.,]+%?`)},
	{"ROE", regexp.MustCompile(`(?i)return on equity[\s:]*[\d.,]+%?`)},
	{"Debt to Equity", regexp.MustCompile(`(?i)debt[\s-]to[\s-]equity[\s:]*[\d.,]+`)},
}

// ScreenMetrics scans the text for common financial metric phrasings and
// returns the first literal hit per metric.
func ScreenMetrics(text string) map[string]string {
	out := make(map[string]string)
	for _, mp := range metricPatterns {
		if m := mp.pattern.FindString(text); m != "" {
			out[mp.name] = strings.TrimSpace(m)
		}
	}
	return out
}

var riskIndicators = []struct {
	pattern *regexp.Regexp
	risk    string
}{
	{regexp.MustCompile(`(?i)debt[\s-]to[\s-]equity`), "High debt-to-equity ratio"},
	{regexp.MustCompile(`(?i)going[\s-]concern`), "Going concern issues"},
	{regexp.MustCompile(`(?i)liquidity`), "Liquidity pressure"},
	{regexp.MustCompile(`(?i)default`), "Risk of default on obligations"},
	{regexp.MustCompile(`(?i)supply[\s-]chain`), "Supply chain disruptions"},
	{regexp.MustCompile(`(?i)cyber[\s-]?security|data[\s-]breach`), "Cybersecurity vulnerabilities"},
	{regexp.MustCompile(`(?i)regulatory`), "Regulatory compliance exposure"},
	{regexp.MustCompile(`(?i)market[\s-]volatility`), "Market volatility"},
	{regexp.MustCompile(`(?i)economic[\s-]downturn`), "Economic downturn risks"},
	{regexp.MustCompile(`(?i)competition|competitive pressure`), "Increased competition"},
	{regexp.MustCompile(`(?i)foreign[\s-]exchange|currency risk`), "Foreign exchange risk"},
	{regexp.MustCompile(`(?i)interest[\s-]rate`), "Interest rate risk"},
}

// ScreenRisks returns risk statements whose indicators appear in the text,
// in indicator order so output is deterministic.
func ScreenRisks(text string) []string {
	var out []string
	for _, ri := range riskIndicators {
		if ri.pattern.MatchString(text) {
			out = append(out, ri.risk)
		}
	}
	return out
}
