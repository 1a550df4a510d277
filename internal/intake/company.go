package intake

import (
	"regexp"
	"strings"

	"offerflow/internal"
)

var freemailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "outlook.com": {}, "hotmail.com": {},
	"live.com": {}, "yahoo.com": {}, "icloud.com": {}, "proton.me": {},
	"protonmail.com": {}, "gmx.com": {}, "aol.com": {},
}

var reSignoff = regexp.MustCompile(`(?i)^(best|kind)\s+regards,?$|^regards,?$|^sincerely,?$|^thanks,?$|^thank you,?$`)
var reCompanySuffix = regexp.MustCompile(`(?i)\b(inc|ltd|llc|gmbh|ab|as|oy|aps|a/s|s\.a\.|b\.v\.|co|corp|company|group)\.?\b`)

func ExtractCompany(msg *internal.InboundMessage) string {
	if company := companyFromSignature(msg.Body); company != "" {
		return company
	}

	if name := SenderName(msg.Sender); name != "" && !looksLikePersonalName(name) {
		return name
	}

	domain := SenderDomain(msg.Sender)
	if domain == "" {
		return ""
	}
	if _, free := freemailDomains[domain]; free {
		return ""
	}
	base := strings.TrimSuffix(domain, ".com")
	if dot := strings.Index(base, "."); dot > 0 {
		base = base[:dot]
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

func companyFromSignature(body string) string {
	lines := splitLines(body)
	signoffAt := -1
	for i, line := range lines {
		if reSignoff.MatchString(line) {
			signoffAt = i
			break
		}
	}
	if signoffAt < 0 {
		return ""
	}

	// The company usually follows the person within a couple of lines.
	for i := signoffAt + 1; i < len(lines) && i <= signoffAt+4; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || isLikelyNoise(line) {
			continue
		}
		if reCompanySuffix.MatchString(line) {
			return line
		}
	}
	return ""
}

func looksLikePersonalName(name string) bool {
	if reCompanySuffix.MatchString(name) {
		return false
	}
	parts := strings.Fields(name)
	return len(parts) == 2 || len(parts) == 3
}
