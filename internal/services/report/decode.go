package report

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/ternarybob/prism/internal/models"
)

// fields indexes a JSON object by normalized key, so "pushMessage", "push_message" and
// "PUSH_MESSAGE" are the same field. An exact key match wins; otherwise colliding keys
// resolve to the first in sorted order, so decoding is deterministic.
type fields struct {
	exact      map[string]json.RawMessage
	normalized map[string]json.RawMessage
}

func newFields(object []byte) fields {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(object, &raw); err != nil {
		return fields{}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := fields{exact: raw, normalized: make(map[string]json.RawMessage, len(raw))}
	for _, k := range keys {
		key := normalizeKey(k)
		if _, exists := f.normalized[key]; !exists {
			f.normalized[key] = raw[k]
		}
	}
	return f
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(k))
}

// lookup returns the first present key among names.
func (f fields) lookup(names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := f.exact[name]; ok {
			return v, true
		}
		if v, ok := f.normalized[normalizeKey(name)]; ok {
			return v, true
		}
	}
	return nil, false
}

// text returns a string field, or "" when absent or not a string.
func (f fields) text(names ...string) string {
	raw, ok := f.lookup(names...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// number returns a numeric field, or 0 when absent or not a number.
func (f fields) number(names ...string) float64 {
	raw, ok := f.lookup(names...)
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// list returns the elements of an array field, or nil when absent or not an array.
func (f fields) list(names ...string) []json.RawMessage {
	raw, ok := f.lookup(names...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// object decodes raw as an object, reporting false for any other JSON type.
func object(raw json.RawMessage) (fields, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return fields{}, false
	}
	return newFields([]byte(trimmed)), true
}

func decodeHeadlines(items []json.RawMessage) []models.NewsHeadline {
	out := make([]models.NewsHeadline, 0, len(items))
	for _, item := range items {
		f, ok := object(item)
		if !ok {
			continue
		}
		out = append(out, models.NewsHeadline{
			Title: f.text("title"),
			Link:  f.text("link", "url"),
		})
	}
	return out
}

func decodeSectors(items []json.RawMessage) []models.Sector {
	out := make([]models.Sector, 0, len(items))
	for _, item := range items {
		f, ok := object(item)
		if !ok {
			continue
		}
		out = append(out, models.Sector{
			Name:      f.text("name", "sector"),
			Sentiment: f.text("sentiment"),
			Reason:    f.text("reason"),
		})
	}
	return out
}

func decodeKeywords(items []json.RawMessage) []models.Keyword {
	out := make([]models.Keyword, 0, len(items))
	for _, item := range items {
		f, ok := object(item)
		if !ok {
			continue
		}
		out = append(out, models.Keyword{
			Name:   f.text("name", "keyword"),
			Weight: f.number("weight"),
		})
	}
	return out
}

// decodeTickers accepts objects and bare strings; a string becomes both the display
// name and the symbol. Elements with neither a name nor a symbol are dropped.
func decodeTickers(items []json.RawMessage) []models.Instrument {
	out := make([]models.Instrument, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, models.Instrument{DisplayName: s, Symbol: s})
			}
			continue
		}

		f, ok := object(item)
		if !ok {
			continue
		}
		instrument := models.Instrument{
			DisplayName: strings.TrimSpace(f.text("displayName", "name")),
			Symbol:      strings.TrimSpace(f.text("symbol", "ticker", "code")),
		}
		if instrument.DisplayName == "" {
			instrument.DisplayName = instrument.Symbol
		}
		if instrument.DisplayName == "" {
			continue
		}
		out = append(out, instrument)
	}
	return out
}
