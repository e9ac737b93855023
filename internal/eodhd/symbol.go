package eodhd

import "strings"

// indexSymbols maps Yahoo-style index symbols to EODHD's INDX exchange.
var indexSymbols = map[string]string{
	"^GSPC":     "GSPC.INDX",
	"^IXIC":     "IXIC.INDX",
	"^DJI":      "DJI.INDX",
	"^KS11":     "KS11.INDX",
	"^KQ11":     "KQ11.INDX",
	"000001.SS": "000001.SHG",
	"^N225":     "N225.INDX",
	"^STOXX50E": "STOXX50E.INDX",
}

// suffixes maps Yahoo exchange suffixes to EODHD exchange codes.
var suffixes = map[string]string{
	".KS": ".KO",
	".KQ": ".KQ",
	".T":  ".TSE",
	".SS": ".SHG",
	".SZ": ".SHE",
	".HK": ".HK",
	".AX": ".AU",
	".L":  ".LSE",
	".DE": ".XETRA",
	".PA": ".PA",
	".TO": ".TO",
}

// ToEODHDSymbol translates a Yahoo-style symbol into TICKER.EXCHANGE form:
//   - "^GSPC" -> "GSPC.INDX"
//   - "005930.KS" -> "005930.KO"
//   - "AAPL" -> "AAPL.US"
func ToEODHDSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if mapped, ok := indexSymbols[symbol]; ok {
		return mapped
	}

	if strings.HasPrefix(symbol, "^") {
		return strings.TrimPrefix(symbol, "^") + ".INDX"
	}

	if dot := strings.LastIndex(symbol, "."); dot > 0 {
		base, suffix := symbol[:dot], symbol[dot:]
		if mapped, ok := suffixes[suffix]; ok {
			return base + mapped
		}
		return symbol
	}

	return symbol + ".US"
}
