// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownSymbol is returned for blank display names so resolution never yields "".
// The market data lookup fails it later.
const UnknownSymbol = "UNKNOWN"

// DefaultTickerAliases maps frequently recommended display names to provider symbols.
// Keys are matched after normalizeAlias.
var DefaultTickerAliases = map[string]string{
	// KOSPI
	"삼성전자":      "005930.KS",
	"sk하이닉스":    "000660.KS",
	"하이닉스":      "000660.KS",
	"lg에너지솔루션":  "373220.KS",
	"삼성바이오로직스":  "207940.KS",
	"현대차":       "005380.KS",
	"현대자동차":     "005380.KS",
	"기아":        "000270.KS",
	"셀트리온":      "068270.KS",
	"naver":     "035420.KS",
	"네이버":       "035420.KS",
	"카카오":       "035720.KS",
	"posco홀딩스":  "005490.KS",
	"lg화학":      "051910.KS",
	"삼성sdi":     "006400.KS",
	"현대모비스":     "012330.KS",
	"kb금융":      "105560.KS",
	"한화에어로스페이스": "012450.KS",
	// KOSDAQ
	"에코프로비엠": "247540.KQ",
	"에코프로":   "086520.KQ",
	"알테오젠":   "196170.KQ",
	// US
	"애플":      "AAPL",
	"엔비디아":    "NVDA",
	"테슬라":     "TSLA",
	"마이크로소프트": "MSFT",
	"아마존":     "AMZN",
	"구글":      "GOOGL",
	"알파벳":     "GOOGL",
	"메타":      "META",
	"브로드컴":    "AVGO",
	"팔란티어":    "PLTR",
	"tsmc":    "TSM",
}

// TickerResolver maps display names to provider symbols. Resolve is total and
// deterministic: the alias table is fixed after construction.
type TickerResolver struct {
	aliases    map[string]string
	homeSuffix string
	homeDigits int
}

// NewTickerResolver builds a resolver from config, merging the optional YAML alias file
// over the built-in table.
func NewTickerResolver(config TickersConfig) (*TickerResolver, error) {
	r := NewDefaultTickerResolver()
	if config.HomeSuffix != "" {
		r.homeSuffix = config.HomeSuffix
	}
	if config.HomeCodeDigits > 0 {
		r.homeDigits = config.HomeCodeDigits
	}

	if config.AliasesFile != "" {
		extra, err := LoadAliasesFile(config.AliasesFile)
		if err != nil {
			return nil, err
		}
		r.addAliases(extra)
	}

	return r, nil
}

// NewDefaultTickerResolver returns a resolver for the Korean home market (".KS", 6-digit codes).
func NewDefaultTickerResolver() *TickerResolver {
	r := &TickerResolver{
		aliases:    make(map[string]string, len(DefaultTickerAliases)),
		homeSuffix: ".KS",
		homeDigits: 6,
	}
	r.addAliases(DefaultTickerAliases)
	return r
}

func (r *TickerResolver) addAliases(aliases map[string]string) {
	for name, symbol := range aliases {
		key := normalizeAlias(name)
		symbol = strings.TrimSpace(symbol)
		if key == "" || symbol == "" {
			continue
		}
		r.aliases[key] = symbol
	}
}

// Resolve returns the provider symbol for a display name.
//   - "삼성전자" -> "005930.KS" (alias table)
//   - "005930" -> "005930.KS" (bare home-market code)
//   - "AAPL" -> "AAPL" (passed through)
func (r *TickerResolver) Resolve(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return UnknownSymbol
	}

	if symbol, ok := r.aliases[normalizeAlias(name)]; ok {
		return symbol
	}

	if r.isHomeCode(name) {
		return name + r.homeSuffix
	}

	return name
}

// isHomeCode reports whether s is a bare numeric code of the home market's length.
func (r *TickerResolver) isHomeCode(s string) bool {
	if len(s) != r.homeDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// normalizeAlias lowercases and strips whitespace so "SK 하이닉스" matches "SK하이닉스".
func normalizeAlias(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// aliasFile is the YAML layout of an alias file:
//
//	aliases:
//	  삼성전자우: 005935.KS
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliasesFile reads a YAML display name -> symbol table.
func LoadAliasesFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticker aliases %s: %w", path, err)
	}

	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse ticker aliases %s: %w", path, err)
	}

	if file.Aliases == nil {
		return map[string]string{}, nil
	}
	return file.Aliases, nil
}
