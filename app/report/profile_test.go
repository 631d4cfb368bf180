package report

import (
	"reflect"
	"testing"
)

func TestProfileTargets(t *testing.T) {
	tests := []struct {
		name      string
		profile   Profile
		job       string
		companies []string
	}{
		{
			name:      "korean keys with list",
			profile:   Profile{"목표 직무": "백엔드", "희망 기업": []any{"회사A", "", nil, "회사B"}},
			job:       "백엔드",
			companies: []string{"회사A", "회사B"},
		},
		{
			name:      "english keys with comma string",
			profile:   Profile{"target_job": "데이터 엔지니어", "target_companies": "회사A, 회사B ,"},
			job:       "데이터 엔지니어",
			companies: []string{"회사A", "회사B"},
		},
		{
			name:      "string slice",
			profile:   Profile{"target_company": []string{"회사C"}},
			companies: []string{"회사C"},
		},
		{
			name:    "empty",
			profile: Profile{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.TargetJob(); got != tt.job {
				t.Errorf("Expected job %q, got %q", tt.job, got)
			}
			if got := tt.profile.TargetCompanies(); !reflect.DeepEqual(got, tt.companies) {
				t.Errorf("Expected companies %v, got %v", tt.companies, got)
			}
		})
	}
}
