// Package report declares the structured session report returned by the
// report-generation endpoint. The core treats it opaquely: it delivers a
// transcript and accepts this shape back.
package report

type TalkTime struct {
	PeerA        float64 `json:"peerA"`
	PeerB        float64 `json:"peerB"`
	PeerADetails string  `json:"peerADetails,omitempty"`
	PeerBDetails string  `json:"peerBDetails,omitempty"`
}

type Highlights struct {
	PeerA []string `json:"peerA"`
	PeerB []string `json:"peerB"`
}

type ActionItem struct {
	Action    string `json:"action"`
	Owner     string `json:"owner"`
	Completed bool   `json:"completed,omitempty"`
}

type PeerSentiment struct {
	Sentiment      string   `json:"sentiment"`
	WhatWentWell   []string `json:"whatWentWell"`
	WhatWentWrong  []string `json:"whatWentWrong"`
	EmotionalState string   `json:"emotionalState"`
}

type SentimentAnalysis struct {
	Overall string        `json:"overall"`
	PeerA   PeerSentiment `json:"peerA"`
	PeerB   PeerSentiment `json:"peerB"`
}

type RiskWords struct {
	Detected   bool     `json:"detected"`
	Words      []string `json:"words,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Severity   string   `json:"severity,omitempty"`
}

type HomeworkItem struct {
	Commitment string `json:"commitment"`
	Completed  bool   `json:"completed"`
	Notes      string `json:"notes,omitempty"`
}

type PeerHomework struct {
	TotalCommitments int            `json:"totalCommitments"`
	Completed        int            `json:"completed"`
	Items            []HomeworkItem `json:"items"`
}

type HomeworkCompletion struct {
	PeerA PeerHomework `json:"peerA"`
	PeerB PeerHomework `json:"peerB"`
}

type EngagementScore struct {
	PeerA   float64 `json:"peerA"`
	PeerB   float64 `json:"peerB"`
	Overall float64 `json:"overall"`
}

type SessionReport struct {
	TalkTime           TalkTime           `json:"talkTime"`
	Highlights         Highlights         `json:"highlights"`
	ActionItems        []ActionItem       `json:"actionItems"`
	SentimentAnalysis  SentimentAnalysis  `json:"sentimentAnalysis"`
	RiskWords          RiskWords          `json:"riskWords"`
	HomeworkCompletion HomeworkCompletion `json:"homeworkCompletion"`
	MoodAnalysis       string             `json:"moodAnalysis"`
	Summary            string             `json:"summary"`
	EngagementScore    EngagementScore    `json:"engagementScore"`
}
