package server

import (
	"github.com/mohammad-safakhou/azadi/internal/ledger"
	"github.com/mohammad-safakhou/azadi/models"
)

const (
	msgNoIssues      = "Please provide an array of issues (topics from the videos)."
	msgNoCity        = "Please provide a city."
	msgMissingAPIKey = "Server missing GEMINI_API_KEY. Add it to .env"
	msgEmpty         = "No recommendations right now. Try again in a bit."
)

// RecommendRequest is the body of the article and charity endpoints.
type RecommendRequest struct {
	Issues []string `json:"issues" validate:"required,min=1,max=50,dive,max=300"`
}

func (RecommendRequest) validationMessage(field string) string {
	if field == "issues" {
		return msgNoIssues
	}
	return ""
}

// ProtestsRequest is the body of the nearby-protests endpoint.
type ProtestsRequest struct {
	City   string   `json:"city" validate:"required,max=120"`
	Issues []string `json:"issues" validate:"required,min=1,max=50,dive,max=300"`
}

func (ProtestsRequest) validationMessage(field string) string {
	switch field {
	case "issues":
		return msgNoIssues
	case "city":
		return msgNoCity
	}
	return ""
}

// ArticlesResponse is returned by the articles endpoint.
type ArticlesResponse struct {
	Recommendations []models.Article `json:"recommendations"`
	Cached          bool             `json:"cached"`
	Message         string           `json:"message,omitempty"`
}

// CharitiesResponse is returned by the charities endpoint.
type CharitiesResponse struct {
	Recommendations []models.Charity `json:"recommendations"`
	Cached          bool             `json:"cached"`
	Message         string           `json:"message,omitempty"`
}

// ProtestsResponse is returned by the nearby-protests endpoint.
type ProtestsResponse struct {
	Protests []models.Protest `json:"protests"`
	City     string           `json:"city"`
	Cached   bool             `json:"cached"`
	Message  string           `json:"message,omitempty"`
}

// ForumMessageRequest is an accepted forum post.
type ForumMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// ForumMessageResponse reports the counter after a message.
type ForumMessageResponse struct {
	MessageCount      int  `json:"message_count"`
	EarnedRewardCount int  `json:"earned_reward_count"`
	RewardEarned      bool `json:"reward_earned"`
}

// WalletRequest sets the claim destination.
type WalletRequest struct {
	Address string `json:"address" validate:"required"`
}

// ClaimResponse reports a successful claim.
type ClaimResponse struct {
	Success           bool   `json:"success"`
	TxRef             string `json:"tx_ref,omitempty"`
	EarnedRewardCount int    `json:"earned_reward_count"`
}

// LedgerResponse is the public view of a user's ledger.
type LedgerResponse struct {
	MessageCount      int    `json:"message_count"`
	EarnedRewardCount int    `json:"earned_reward_count"`
	WalletAddress     string `json:"wallet_address,omitempty"`
	NextRewardIn      int    `json:"next_reward_in"`
}

func ledgerResponse(l ledger.Ledger, interval int) LedgerResponse {
	if interval <= 0 {
		interval = ledger.DefaultRewardInterval
	}
	return LedgerResponse{
		MessageCount:      l.MessageCount,
		EarnedRewardCount: l.EarnedRewardCount,
		WalletAddress:     l.WalletAddress,
		NextRewardIn:      interval - l.MessageCount%interval,
	}
}
