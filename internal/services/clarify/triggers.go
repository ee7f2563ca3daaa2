package clarify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"AgriPrice/internal/domain/models"
)

var (
	recencyMarker   = regexp.MustCompile(`(?i)(요즘|요새|최근|근래|recent|lately|these days|nowadays)`)
	explicitPeriod  = regexp.MustCompile(`(?i)\d+\s*(개월|달|일|주|년|days?|weeks?|months?|years?)`)
	magnitudeMarker = regexp.MustCompile(`(?i)(비싼|비싸|싼|저렴|expensive|cheap|pricey|costly)`)
)

// Recent window options, in days.
var windowOptions = []string{"30d", "90d", "180d"}

var intentOptions = []string{
	string(models.IntentHighAvgPrice),
	string(models.IntentHighPriceChange),
	string(models.IntentHighVolatility),
}

// needsWindow reports a vague recency marker with no period pinned anywhere.
func needsWindow(question string, d models.DraftFilter) bool {
	if !recencyMarker.MatchString(question) {
		return false
	}
	return !d.HasDateRange() && d.WindowDays == nil && !explicitPeriod.MatchString(question)
}

// needsIntent reports a vague magnitude word while the intent is still plain.
func needsIntent(question string, d models.DraftFilter) bool {
	if !magnitudeMarker.MatchString(question) {
		return false
	}
	i, ok := models.ParseIntent(d.Intent)
	return !ok || i == models.IntentNormal
}

func windowQuestion() models.Question {
	return models.Question{
		ID:       models.QuestionRecentWindow,
		Question: "'최근'을 어느 기간으로 볼까요?",
		Options:  append([]string(nil), windowOptions...),
		Default:  windowOptions[0],
	}
}

func intentQuestion() models.Question {
	return models.Question{
		ID:       models.QuestionExpensiveMeaning,
		Question: "'비싸다'는 어떤 의미인가요? 평균 가격이 높은 시장, 가격 상승폭이 큰 시장, 변동성이 큰 시장 중에서 골라 주세요.",
		Options:  append([]string(nil), intentOptions...),
		Default:  intentOptions[0],
	}
}

func choiceQuestion(id, label, query string, options []string) models.Question {
	return models.Question{
		ID:       id,
		Question: fmt.Sprintf("'%s'에 해당하는 %s을(를) 선택해 주세요.", query, label),
		Options:  options,
		Default:  options[0],
	}
}

// parseWindow accepts "90d", "90", "90일" and returns the day count.
func parseWindow(answer string) (int, error) {
	s := strings.TrimSpace(strings.ToLower(answer))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "d"), "일")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, models.NewValidationError("window_days", answer, "must be a day count such as "+strings.Join(windowOptions, ", "))
	}
	return n, nil
}
