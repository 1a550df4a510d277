package intake

import (
	"strings"

	"offerflow/internal"
)

type DetectResult struct {
	IsRequest bool
	Score     float64
	Reason    string
}

var detectKeywords = []string{
	"quote", "quotation", "offer", "rfq", "request for", "pricing",
	"price list", "qty", "how much", "please send", "inquiry", "enquiry",
}

const detectThreshold = 0.45

func DetectRequest(msg *internal.InboundMessage) DetectResult {
	subject := strings.ToLower(msg.Subject)
	text := strings.ToLower(msg.Body)
	html := strings.ToLower(msg.HTMLBody)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	numberRuns := countNumberRuns(text)
	if numberRuns >= 2 {
		score += 0.4
	} else if numberRuns == 1 {
		score += 0.2
	}

	for _, att := range msg.Attachments {
		ln := strings.ToLower(att.FileName)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isRequest := score >= detectThreshold
	reason := "rules_negative"
	if isRequest {
		reason = "rules_positive"
	}
	return DetectResult{IsRequest: isRequest, Score: score, Reason: reason}
}

func countNumberRuns(text string) int {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] >= '0' && text[i] <= '9' {
			count++
			for i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
				i++
			}
		}
	}
	return count
}
