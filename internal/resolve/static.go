package resolve

import (
	"regexp"
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Extraction categories are schema-gated: a pattern only runs when the
// task's schema declares a parameter of that shape. This keeps a request
// like "list everything" from producing spurious matches.

var (
	companyPattern  = regexp.MustCompile(`(?i)\bcompany\s+([A-Za-z0-9][\w-]*)`)
	companyIDToken  = regexp.MustCompile(`\bcomp_[A-Za-z0-9]+\b`)
	contractPattern = regexp.MustCompile(`(?i)\bcontract\s+([A-Za-z0-9][\w-]*)`)
	contractIDToken = regexp.MustCompile(`\bcont_[A-Za-z0-9]+\b`)
	employeePattern = regexp.MustCompile(`(?i)\bemployee\s+([A-Za-z0-9][\w-]*)`)
	employeeIDToken = regexp.MustCompile(`\bemp_[A-Za-z0-9]+\b`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	rangePattern    = regexp.MustCompile(`(?i)\bfrom\s+(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
)

// genericNouns are words that follow an entity noun without naming a
// specific entity ("the employee record"). Captures matching these are
// discarded.
var genericNouns = map[string]bool{
	"record": true, "records": true, "detail": true, "details": true,
	"info": true, "information": true, "data": true, "list": true,
	"lists": true, "status": true, "id": true, "ids": true,
	"named": true, "called": true, "with": true, "that": true,
	"this": true, "the": true, "for": true, "by": true,
}

// entityName validates a captured entity-name token.
func entityName(m []string) (string, bool) {
	if m == nil {
		return "", false
	}
	if genericNouns[strings.ToLower(m[1])] {
		return "", false
	}
	return m[1], true
}

// statusKeywords are recognized status filter values.
var statusKeywords = []string{
	"active", "inactive", "pending", "completed", "cancelled",
	"terminated", "paid", "unpaid", "overdue", "draft",
}

// extractStatic pattern-matches the utterance for the categories the schema
// declares. Keys use the canonical parameter names the strategy synthesis
// matches against.
func extractStatic(utterance string, schema models.OperationSchema) map[string]any {
	out := make(map[string]any)
	if utterance == "" {
		return out
	}

	// Entity-name patterns run against an email-scrubbed copy so a fragment
	// of an address is never mistaken for an entity name.
	scrubbed := emailPattern.ReplaceAllString(utterance, " ")

	if schemaWantsCategory(schema, "company") {
		if m := companyIDToken.FindString(scrubbed); m != "" {
			out["companyId"] = m
		} else if name, ok := entityName(companyPattern.FindStringSubmatch(scrubbed)); ok {
			out["companyId"] = name
		}
	}
	if schemaWantsCategory(schema, "contract") {
		if m := contractIDToken.FindString(scrubbed); m != "" {
			out["contractId"] = m
		} else if name, ok := entityName(contractPattern.FindStringSubmatch(scrubbed)); ok {
			out["contractId"] = name
		}
	}
	if schemaWantsCategory(schema, "employee") {
		if m := employeeIDToken.FindString(scrubbed); m != "" {
			out["employeeId"] = m
		} else if name, ok := entityName(employeePattern.FindStringSubmatch(scrubbed)); ok {
			out["employeeId"] = name
		}
	}
	if schemaWantsCategory(schema, "email") {
		if m := emailPattern.FindString(utterance); m != "" {
			out["email"] = m
		}
	} else if m := emailPattern.FindString(utterance); m != "" {
		// Emails are still recorded for gap analysis (the "only an email
		// was supplied" case) even when no declared parameter wants one.
		out["_email"] = m
	}
	if schemaWantsCategory(schema, "status") {
		lower := strings.ToLower(utterance)
		for _, kw := range statusKeywords {
			if containsWord(lower, kw) {
				out["status"] = kw
				break
			}
		}
	}
	if schemaWantsCategory(schema, "date") {
		if m := rangePattern.FindStringSubmatch(utterance); m != nil {
			out["startDate"] = m[1]
			out["endDate"] = m[2]
		} else if dates := isoDatePattern.FindAllString(utterance, -1); len(dates) == 2 {
			out["startDate"] = dates[0]
			out["endDate"] = dates[1]
		} else if len(dates) == 1 {
			out["startDate"] = dates[0]
		}
	}
	return out
}

// schemaWantsCategory reports whether any declared parameter name matches
// the extraction category.
func schemaWantsCategory(schema models.OperationSchema, category string) bool {
	for _, name := range schema.ParamNames() {
		n := strings.ToLower(name)
		switch category {
		case "company":
			if strings.Contains(n, "company") {
				return true
			}
		case "contract":
			if strings.Contains(n, "contract") {
				return true
			}
		case "employee":
			if strings.Contains(n, "employee") || strings.Contains(n, "worker") {
				return true
			}
		case "email":
			if strings.Contains(n, "email") {
				return true
			}
		case "status":
			if strings.Contains(n, "status") || strings.Contains(n, "state") {
				return true
			}
		case "date":
			if strings.Contains(n, "date") || strings.Contains(n, "period") ||
				strings.Contains(n, "from") || strings.Contains(n, "to") ||
				strings.Contains(n, "range") {
				return true
			}
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(haystack[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(haystack) || !isWordChar(haystack[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(haystack[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
