package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerResolver_Resolve(t *testing.T) {
	r := NewDefaultTickerResolver()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"curated korean name", "삼성전자", "005930.KS"},
		{"curated name with whitespace", "  삼성전자 ", "005930.KS"},
		{"curated name ignores inner spacing and case", "SK 하이닉스", "000660.KS"},
		{"curated us name", "엔비디아", "NVDA"},
		{"bare home code", "005930", "005930.KS"},
		{"short numeric passes through", "12345", "12345"},
		{"suffixed symbol passes through", "035720.KS", "035720.KS"},
		{"us symbol passes through", "AAPL", "AAPL"},
		{"unknown name passes through", "어떤회사", "어떤회사"},
		{"blank", "   ", UnknownSymbol},
		{"empty", "", UnknownSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input))
		})
	}
}

func TestTickerResolver_Deterministic(t *testing.T) {
	r := NewDefaultTickerResolver()
	for _, name := range []string{"삼성전자", "005380", "TSLA", ""} {
		first := r.Resolve(name)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, r.Resolve(name))
		}
		assert.NotEmpty(t, first)
	}
}

func TestNewTickerResolver_AliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.yaml")
	content := "aliases:\n  삼성전자우: 005935.KS\n  삼성전자: 005930.KS\n  한미반도체: \"042700\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := NewTickerResolver(TickersConfig{HomeSuffix: ".KS", HomeCodeDigits: 6, AliasesFile: path})
	require.NoError(t, err)

	assert.Equal(t, "005935.KS", r.Resolve("삼성전자우"))
	assert.Equal(t, "042700", r.Resolve("한미반도체"))
	assert.Equal(t, "NVDA", r.Resolve("엔비디아"), "built-in aliases still apply")
}

func TestNewTickerResolver_CustomHomeMarket(t *testing.T) {
	r, err := NewTickerResolver(TickersConfig{HomeSuffix: ".T", HomeCodeDigits: 4})
	require.NoError(t, err)

	assert.Equal(t, "7203.T", r.Resolve("7203"))
	assert.Equal(t, "005930", r.Resolve("005930"))
}

func TestNewTickerResolver_MissingAliasFile(t *testing.T) {
	_, err := NewTickerResolver(TickersConfig{HomeCodeDigits: 6, AliasesFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
