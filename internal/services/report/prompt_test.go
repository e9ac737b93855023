package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/prism/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	in := PromptInput{
		Now: time.Date(2025, 1, 8, 1, 0, 0, 0, time.UTC),
		Sessions: []models.MarketSession{
			{ExchangeName: "코스피", Symbol: "^KS11", LastPrice: 2525, ChangePercent: 1, IsTradingDay: true, IsOpen: true},
			{ExchangeName: "닛케이225", Symbol: "^N225", LastPrice: 39000, ChangePercent: -0.5},
		},
		Performance: []models.PerformanceRecord{
			{DisplayName: "삼성전자", Symbol: "005930.KS", ChangePercent: 2, Status: models.PerformanceOK},
			{DisplayName: "SK하이닉스", Symbol: "000660.KS", Status: models.PerformanceNoTrade},
		},
		News: []models.NewsItem{{Title: "Chip rally", Link: "https://example.com/a", Feed: "글로벌", Summary: "Details"}},
	}

	prompt := BuildPrompt(in)

	assert.Contains(t, prompt, "2025-01-08")
	assert.Contains(t, prompt, "- 코스피 (^KS11): 2525.00, +1.00%, 장중")
	assert.Contains(t, prompt, "- 닛케이225 (^N225): 39000.00, -0.50%, 휴장")
	assert.Contains(t, prompt, "- 삼성전자 (005930.KS): +2.00%")
	assert.Contains(t, prompt, "- SK하이닉스 (000660.KS): 거래 없음")
	assert.Contains(t, prompt, "[글로벌] Chip rally (https://example.com/a)")
	assert.Contains(t, prompt, `"pushMessage"`)
	assert.Equal(t, prompt, BuildPrompt(in))
}

func TestBuildPrompt_Empty(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Now: time.Now()})
	assert.Contains(t, prompt, "지난 추천 기록이 없습니다")
	assert.Contains(t, prompt, "지수 데이터를 가져오지 못했습니다")
	assert.Contains(t, prompt, "뉴스를 가져오지 못했습니다")
}
