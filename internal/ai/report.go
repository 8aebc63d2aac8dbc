package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Shivyyyy-git/volley-peer-app/internal/report"
)

const reportPromptTemplate = `Based on the following coaching session transcript, generate a comprehensive detailed report.
This session involves two human participants, "Peer A" and "Peer B", moderated by an AI coach, "Kelly".
The transcript labels each speaker explicitly (e.g., "Peer A:", "Peer B:", "Kelly:").
Carefully analyze the conversation flow and distinguish between the two speakers based on the labeled transcript.

IMPORTANT: Only count talk time and analyze content from what each peer ACTUALLY said (labeled "Peer A:" or "Peer B:"). Do NOT count Kelly's speech or assume 50/50 distribution.

Transcript:
---
%s
---

The report must be in JSON format, adhering to the provided schema. Analyze the transcript for the following:

1. Talk Time: calculate the ACTUAL percentage of talk time for Peer A vs. Peer B based ONLY on their labeled speech, with details about what each peer talked about. peerA plus peerB should total 100.
2. Highlights: extract 2-4 key discussion points or insights for both Peer A and Peer B.
3. Action Items & Commitments: identify all action items and commitments made by each peer, assign each to "Peer A" or "Peer B", and mark completed false for all.
4. Sentiment Analysis: overall sentiment plus, for EACH peer, sentiment (positive/neutral/negative), what went well (2-3 points), what went wrong or needs improvement (1-2 points), and an emotional state description.
5. Risk Words Detection: check for inappropriate language, money requests, or sensitive information; if detected, list the words and categories and assess severity (low/medium/high).
6. Homework Completion: identify all commitments made during the session, organized per peer, each marked completed false with total vs. completed counts.
7. Engagement Score: rate each peer's engagement (0-100) based on participation, depth of responses, and interaction quality, plus an overall score.
8. Mood Analysis: briefly describe the overall mood and synergy between the peers.
9. Summary: a concise one-paragraph summary of the joint session.`

func stringSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func numberSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func stringListSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func peerSentimentSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentiment":      stringSchema("'positive', 'neutral', or 'negative'"),
			"whatWentWell":   stringListSchema(),
			"whatWentWrong":  stringListSchema(),
			"emotionalState": {Type: genai.TypeString},
		},
	}
}

func peerHomeworkSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"totalCommitments": {Type: genai.TypeNumber},
			"completed":        numberSchema("Always 0 for current session"),
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"commitment": {Type: genai.TypeString},
						"completed":  {Type: genai.TypeBoolean, Description: "Always false for current session"},
						"notes":      {Type: genai.TypeString},
					},
				},
			},
		},
	}
}

func reportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"talkTime": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"peerA":        numberSchema("Peer A's talk time percentage (0-100)"),
					"peerB":        numberSchema("Peer B's talk time percentage (0-100)"),
					"peerADetails": stringSchema("What Peer A talked about"),
					"peerBDetails": stringSchema("What Peer B talked about"),
				},
			},
			"highlights": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"peerA": stringListSchema(),
					"peerB": stringListSchema(),
				},
			},
			"actionItems": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action":    {Type: genai.TypeString},
						"owner":     stringSchema("'Peer A' or 'Peer B'"),
						"completed": {Type: genai.TypeBoolean, Description: "Always false for current session"},
					},
				},
			},
			"sentimentAnalysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"overall": stringSchema("Overall sentiment description"),
					"peerA":   peerSentimentSchema(),
					"peerB":   peerSentimentSchema(),
				},
			},
			"riskWords": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"detected":   {Type: genai.TypeBoolean, Description: "Whether risk words were found"},
					"words":      stringListSchema(),
					"categories": stringListSchema(),
					"severity":   stringSchema("'low', 'medium', or 'high' (only if detected)"),
				},
			},
			"homeworkCompletion": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"peerA": peerHomeworkSchema(),
					"peerB": peerHomeworkSchema(),
				},
			},
			"engagementScore": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"peerA":   numberSchema("0-100 engagement score"),
					"peerB":   numberSchema("0-100 engagement score"),
					"overall": numberSchema("0-100 overall engagement"),
				},
			},
			"moodAnalysis": {Type: genai.TypeString},
			"summary":      {Type: genai.TypeString},
		},
	}
}

// GeminiReporter generates session reports with a single structured-output
// model call.
type GeminiReporter struct {
	apiKey string
	model  string
}

// NewGeminiReporter builds a reporter for the given model.
func NewGeminiReporter(apiKey, model string) *GeminiReporter {
	return &GeminiReporter{apiKey: apiKey, model: model}
}

// Generate analyzes a labeled transcript and returns the structured report.
func (r *GeminiReporter) Generate(ctx context.Context, transcript string) (*report.SessionReport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: client: %v", ErrReportGeneration, err)
	}

	prompt := fmt.Sprintf(reportPromptTemplate, transcript)
	resp, err := client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reportSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrReportGeneration)
	}
	var out report.SessionReport
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrReportGeneration, err)
	}
	return &out, nil
}
