package recommend

import (
	"context"
	"strings"

	"github.com/lysyi3m/job-agent/app/database"
)

const (
	MaxResults           = 50
	EmptyKeywordsMessage = "검색 키워드가 비어있습니다."
)

type Searcher interface {
	Search(ctx context.Context, keywords []string, limit int) ([]database.Job, error)
}

type Response struct {
	Message string
	Results []database.Job
}

type Service struct {
	jobs Searcher
}

func NewService(jobs Searcher) *Service {
	return &Service{jobs: jobs}
}

// ParseKeywords splits a comma-separated list, trimming entries and dropping
// empty ones.
func ParseKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Recommend finds jobs whose title or company name contains any of the job or
// portfolio keywords. Without keywords it returns a message and never queries
// storage.
func (s *Service) Recommend(ctx context.Context, jobKeywords, portfolioKeywords string) (Response, error) {
	keywords := dedupe(append(ParseKeywords(jobKeywords), ParseKeywords(portfolioKeywords)...))
	if len(keywords) == 0 {
		return Response{Message: EmptyKeywordsMessage, Results: []database.Job{}}, nil
	}

	jobs, err := s.jobs.Search(ctx, keywords, MaxResults)
	if err != nil {
		return Response{}, err
	}
	if len(jobs) > MaxResults {
		jobs = jobs[:MaxResults]
	}

	return Response{Results: jobs}, nil
}

func dedupe(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := keywords[:0]
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
