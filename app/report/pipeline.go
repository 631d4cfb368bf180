package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

const (
	nodeCollectNews = "collect_news"
	nodeBuildPrompt = "build_prompt"
	nodeChatModel   = "chat_model"
	nodeRender      = "render"
)

const systemPrompt = `당신은 한국 채용 시장을 잘 아는 커리어 컨설턴트입니다.
사용자의 프로필과 희망 기업 관련 최신 뉴스를 바탕으로 맞춤형 취업 분석 리포트를 작성하세요.
리포트는 마크다운으로 작성하고 다음 섹션을 포함합니다:
1. 프로필 요약
2. 희망 기업 동향
3. 직무 역량 분석과 보완점
4. 지원 전략과 다음 단계
근거가 부족한 내용은 추측하지 말고 부족하다고 명시하세요.`

// NewsSource supplies recent articles about the given companies.
type NewsSource interface {
	Collect(ctx context.Context, companies []string) ([]Article, error)
}

type reportInput struct {
	Profile Profile
	News    []Article
}

type GraphOptions struct {
	// Limiter paces chat model calls. Nil means unlimited.
	Limiter *rate.Limiter
}

// GraphPipeline generates reports with a compiled graph:
// collect_news -> build_prompt -> chat_model -> render.
type GraphPipeline struct {
	runnable compose.Runnable[Profile, string]
}

var _ Pipeline = (*GraphPipeline)(nil)

func NewGraphPipeline(ctx context.Context, chatModel model.BaseChatModel, news NewsSource, opts GraphOptions) (*GraphPipeline, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	g := compose.NewGraph[Profile, string]()

	collect := compose.InvokableLambda(func(ctx context.Context, profile Profile) (*reportInput, error) {
		in := &reportInput{Profile: profile}
		companies := profile.TargetCompanies()
		if news == nil || len(companies) == 0 {
			return in, nil
		}

		articles, err := news.Collect(ctx, companies)
		if err != nil {
			slog.Warn("News collection failed, continuing without news", "companies", companies, "error", err)
			return in, nil
		}
		in.News = articles
		return in, nil
	})

	prompt := compose.InvokableLambda(func(ctx context.Context, in *reportInput) ([]*schema.Message, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return buildMessages(in)
	})

	render := compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (string, error) {
		if msg == nil {
			return "", errors.New("chat model returned no message")
		}
		return renderContent(msg.Content)
	})

	if err := g.AddLambdaNode(nodeCollectNews, collect); err != nil {
		return nil, fmt.Errorf("failed to add %s node: %w", nodeCollectNews, err)
	}
	if err := g.AddLambdaNode(nodeBuildPrompt, prompt); err != nil {
		return nil, fmt.Errorf("failed to add %s node: %w", nodeBuildPrompt, err)
	}
	if err := g.AddChatModelNode(nodeChatModel, chatModel); err != nil {
		return nil, fmt.Errorf("failed to add %s node: %w", nodeChatModel, err)
	}
	if err := g.AddLambdaNode(nodeRender, render); err != nil {
		return nil, fmt.Errorf("failed to add %s node: %w", nodeRender, err)
	}

	edges := [][2]string{
		{compose.START, nodeCollectNews},
		{nodeCollectNews, nodeBuildPrompt},
		{nodeBuildPrompt, nodeChatModel},
		{nodeChatModel, nodeRender},
		{nodeRender, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", e[0], e[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("analysis_report"))
	if err != nil {
		return nil, fmt.Errorf("failed to compile report graph: %w", err)
	}

	return &GraphPipeline{runnable: runnable}, nil
}

func (p *GraphPipeline) Generate(ctx context.Context, profile Profile) (string, error) {
	return p.runnable.Invoke(ctx, profile)
}

// UnavailablePipeline fails every report with the configuration error that
// prevented a real pipeline from being built.
type UnavailablePipeline struct {
	Err error
}

func (p UnavailablePipeline) Generate(context.Context, Profile) (string, error) {
	return "", fmt.Errorf("report pipeline unavailable: %w", p.Err)
}

func buildMessages(in *reportInput) ([]*schema.Message, error) {
	profileJSON, err := json.MarshalIndent(in.Profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}

	var b strings.Builder
	b.WriteString("## 사용자 프로필\n```json\n")
	b.Write(profileJSON)
	b.WriteString("\n```\n\n")

	if job := in.Profile.TargetJob(); job != "" {
		fmt.Fprintf(&b, "목표 직무: %s\n", job)
	}
	if companies := in.Profile.TargetCompanies(); len(companies) > 0 {
		fmt.Fprintf(&b, "희망 기업: %s\n", strings.Join(companies, ", "))
	}

	b.WriteString("\n## 관련 뉴스\n")
	if len(in.News) == 0 {
		b.WriteString("수집된 뉴스가 없습니다.\n")
	}
	for i, a := range in.News {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, a.Company, a.Title)
		if a.Published != "" {
			fmt.Fprintf(&b, " (%s)", a.Published)
		}
		b.WriteString("\n")
		if a.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", a.Summary)
		}
		if a.Link != "" {
			fmt.Fprintf(&b, "   %s\n", a.Link)
		}
	}

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}, nil
}

func renderContent(content string) (string, error) {
	out := strings.TrimSpace(content)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```markdown")
		out = strings.TrimPrefix(out, "```md")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
		out = strings.TrimSpace(out)
	}
	if out == "" {
		return "", errors.New("chat model returned empty content")
	}
	return out, nil
}
