package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"globfam/config"

	"google.golang.org/genai"
)

// maxGeminiBatch 单次请求的最大描述条数
const maxGeminiBatch = 50

// contentGenerator genai.Models 的子集，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCategorizer 调用 Gemini 为交易描述选择预算分类
type GeminiCategorizer struct {
	models contentGenerator
	model  string
}

// NewGeminiCategorizer 创建 Gemini 分类器，未配置 api_key 时使用 GOOGLE_API_KEY 环境变量
func NewGeminiCategorizer(ctx context.Context, cfg config.AIConfig) (*GeminiCategorizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiCategorizer{models: client.Models, model: model}, nil
}

type geminiAnswer struct {
	Index      int     `json:"index"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorize 实现 Categorizer
func (g *GeminiCategorizer) Categorize(ctx context.Context, descriptions []string, categories []string) ([]Suggestion, error) {
	out := make([]Suggestion, len(descriptions))
	if len(categories) == 0 {
		return out, nil
	}
	allowed := make(map[string]string, len(categories))
	for _, c := range categories {
		allowed[strings.ToLower(c)] = c
	}

	for start := 0; start < len(descriptions); start += maxGeminiBatch {
		end := start + maxGeminiBatch
		if end > len(descriptions) {
			end = len(descriptions)
		}
		answers, err := g.ask(ctx, descriptions[start:end], categories)
		if err != nil {
			return nil, err
		}
		for _, a := range answers {
			i := start + a.Index
			if a.Index < 0 || i >= end {
				continue
			}
			if c, ok := allowed[strings.ToLower(strings.TrimSpace(a.Category))]; ok {
				out[i] = Suggestion{Category: c, Confidence: clampConfidence(a.Confidence)}
			}
		}
	}
	return out, nil
}

func (g *GeminiCategorizer) ask(ctx context.Context, descriptions []string, categories []string) ([]geminiAnswer, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildCategorizePrompt(descriptions, categories)}},
	}}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, errors.New("empty response from model")
	}

	var answers []geminiAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answers); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	return answers, nil
}

func buildCategorizePrompt(descriptions []string, categories []string) string {
	var b strings.Builder
	b.WriteString("You categorize bank transactions for a family budget.\n")
	b.WriteString("Allowed categories (use the exact spelling):\n")
	for _, c := range categories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\nTransactions:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i, d)
	}
	b.WriteString("\nReturn ONLY a JSON array of objects with fields \"index\" (number), ")
	b.WriteString("\"category\" (one of the allowed categories, or \"\" if unsure) and ")
	b.WriteString("\"confidence\" (number between 0 and 1).\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

// cleanModelJSON 去除模型回复中的 Markdown 代码块及多余文本
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
