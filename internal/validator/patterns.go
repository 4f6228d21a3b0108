package validator

import "regexp"

var (
	apiEndpointPattern    = regexp.MustCompile(`^(get|post|put|patch|delete)\.[a-z][a-z0-9_]*$`)
	moduleEndpointPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*\.[a-z][a-z0-9_]*$`)
	dangerousEndpointRe   = regexp.MustCompile(`(?i)(drop|truncate|delete\.users|delete\.all|admin|exec|eval|system)`)

	// Security — string content (XSS / injection signatures).
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
		regexp.MustCompile(`(?i)<iframe`),
		regexp.MustCompile(`(?i)<object`),
		regexp.MustCompile(`(?i)<embed`),
		regexp.MustCompile(`(?i)<meta\s+http-equiv`),
		regexp.MustCompile(`(?i)<base`),
		regexp.MustCompile(`(?i)expression\s*\(`),
		regexp.MustCompile(`(?i)url\(\s*data:`),
		regexp.MustCompile(`(?i)@import`),
	}

	// Security — reactive-template directives that permit raw-HTML
	// injection or arbitrary code evaluation.
	reactivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)x-html\s*=`),
		regexp.MustCompile(`(?i)@\w+\s*=\s*"[^"]*\bfetch\s*\(`),
		regexp.MustCompile(`(?i)x-on:[a-z]+\s*=\s*"[^"]*\bfetch\s*\(`),
		regexp.MustCompile(`(?i)x-init\s*=\s*"[^"]*\beval\s*\(`),
		regexp.MustCompile(`(?i)x-init\s*=\s*"[^"]*\bfetch\s*\(`),
	}

	// Style policy — class tokens that carry HTML fragments, script
	// protocols, or CSS url() in an arbitrary-value slot like `[<...>]`.
	styleForbidden = []*regexp.Regexp{
		regexp.MustCompile(`\[[^\]]*<`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)url\(`),
	}

	// Theme — only exactly 3, 6, or 8 hex digits are accepted (#RGB,
	// #RRGGBB, #RRGGBBAA); a 4/5/7-digit string is rejected even though it
	// would match a naive {3,8} range.
	hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

	// Route — restricted charset, traversal/injection substrings checked
	// separately.
	routePattern = regexp.MustCompile(`^/[a-zA-Z0-9_\-/{}]*$`)
)

func isDangerousEndpoint(endpoint string) bool {
	return dangerousEndpointRe.MatchString(endpoint)
}

func isValidEndpointFormat(endpoint string) bool {
	return apiEndpointPattern.MatchString(endpoint) || moduleEndpointPattern.MatchString(endpoint)
}
