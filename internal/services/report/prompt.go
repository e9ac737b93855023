package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/prism/internal/models"
)

// SystemInstruction frames the model as the note author and pins the output format.
const SystemInstruction = "당신은 한국 개인 투자자를 위한 시장 분석가입니다. " +
	"반드시 요청한 JSON 객체 하나만 출력하고, 투자 권유가 아닌 참고용 분석임을 전제로 작성하세요."

// PromptInput is everything the model sees for one cycle.
type PromptInput struct {
	Now         time.Time
	Location    *time.Location
	Sessions    []models.MarketSession
	Performance []models.PerformanceRecord
	News        []models.NewsItem
}

// BuildPrompt renders the cycle prompt. Output is deterministic for a given input.
func BuildPrompt(in PromptInput) string {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "오늘은 %s입니다.\n\n", in.Now.In(loc).Format("2006-01-02 (Mon) 15:04 MST"))

	b.WriteString("## 주요 지수\n")
	if len(in.Sessions) == 0 {
		b.WriteString("- 지수 데이터를 가져오지 못했습니다.\n")
	}
	for _, s := range in.Sessions {
		fmt.Fprintf(&b, "- %s (%s): %.2f, %+.2f%%, %s\n", s.ExchangeName, s.Symbol, s.LastPrice, s.ChangePercent, sessionLabel(s))
	}

	b.WriteString("\n## 지난 추천 종목 성과\n")
	if len(in.Performance) == 0 {
		b.WriteString("- 지난 추천 기록이 없습니다.\n")
	}
	for _, p := range in.Performance {
		switch p.Status {
		case models.PerformanceNoTrade:
			fmt.Fprintf(&b, "- %s (%s): 거래 없음\n", p.DisplayName, p.Symbol)
		case models.PerformanceInsufficientData:
			fmt.Fprintf(&b, "- %s (%s): 데이터 부족\n", p.DisplayName, p.Symbol)
		default:
			fmt.Fprintf(&b, "- %s (%s): %+.2f%%\n", p.DisplayName, p.Symbol, p.ChangePercent)
		}
	}

	b.WriteString("\n## 최신 뉴스\n")
	if len(in.News) == 0 {
		b.WriteString("- 뉴스를 가져오지 못했습니다.\n")
	}
	for _, n := range in.News {
		label := ""
		if n.Feed != "" {
			label = "[" + n.Feed + "] "
		}
		fmt.Fprintf(&b, "- %s%s (%s)\n", label, n.Title, n.Link)
		if n.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", n.Summary)
		}
	}

	b.WriteString(`
## 요청
위 정보를 바탕으로 오늘의 투자 노트를 작성하세요. 지난 추천의 성과를 반성에 활용하세요.
다음 형식의 JSON 객체 하나만 출력하세요. tickers의 symbol은 Yahoo Finance 심볼(예: 005930.KS, NVDA)로 쓰세요.

{
  "summary": "시장 요약 (3~5문장)",
  "newsHeadlines": [{"title": "헤드라인", "link": "URL"}],
  "sectors": [{"name": "섹터", "sentiment": "positive|neutral|negative", "reason": "근거"}],
  "tickers": [{"displayName": "종목명", "symbol": "심볼"}],
  "keywords": [{"name": "키워드", "weight": 0.0}],
  "reason": "추천 근거",
  "pushMessage": "텔레그램으로 보낼 마크다운 요약 메시지"
}
`)
	return b.String()
}

func sessionLabel(s models.MarketSession) string {
	switch {
	case s.IsOpen:
		return "장중"
	case s.IsTradingDay:
		return "장 마감"
	default:
		return "휴장"
	}
}
