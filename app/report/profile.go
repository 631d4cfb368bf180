package report

import (
	"fmt"
	"strings"
)

// Profile is the user profile document submitted for analysis. It is kept
// as loose JSON because its shape is owned by the client.
type Profile map[string]any

var (
	targetJobKeys     = []string{"목표 직무", "target_job"}
	targetCompanyKeys = []string{"희망 기업", "target_companies", "target_company"}
)

func (p Profile) TargetJob() string {
	for _, key := range targetJobKeys {
		if values := stringValues(p[key]); len(values) > 0 {
			return strings.Join(values, ", ")
		}
	}
	return ""
}

// TargetCompanies returns the companies the user wants to join, accepting
// either a single string or a list.
func (p Profile) TargetCompanies() []string {
	for _, key := range targetCompanyKeys {
		if values := stringValues(p[key]); len(values) > 0 {
			return values
		}
	}
	return nil
}

func stringValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		return stringValues(toAnySlice(val))
	case []any:
		var out []string
		for _, item := range val {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(fmt.Sprint(val)); s != "" {
			return []string{s}
		}
		return nil
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
