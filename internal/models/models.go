package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message represents a single conversational turn in the unified schema.
type Message struct {
	Role    Role
	Content string
	Name    string
}

// MessageParams is the provider-agnostic request accepted by every adapter.
// Nil pointers and empty slices mean "use the provider default".
type MessageParams struct {
	Messages      []Message
	SystemPrompt  string
	Temperature   *float64
	MaxTokens     *int
	StopSequences []string
	UserID        string
	Stream        bool
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewUsage builds a Usage whose total is always prompt + completion.
func NewUsage(prompt, completion int) Usage {
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// Response captures a complete provider response in the unified schema.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string
	Timestamp    time.Time
	// Raw is the provider payload as received, kept for diagnostics only.
	Raw json.RawMessage
}

// Chunk is one increment of a streamed response.
type Chunk struct {
	Content      string
	Index        int
	FinishReason string
	Raw          json.RawMessage
}

// Final reports whether the chunk terminates its stream.
func (c Chunk) Final() bool {
	return c.FinishReason != ""
}

// Capabilities are static per-model feature flags.
type Capabilities struct {
	Streaming       bool `yaml:"streaming" json:"streaming"`
	Vision          bool `yaml:"vision" json:"vision"`
	FunctionCalling bool `yaml:"function_calling" json:"function_calling"`
}

// Pricing is the cost in currency units per 1000 tokens.
type Pricing struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// ModelInfo describes a registered model for discovery purposes.
type ModelInfo struct {
	ID           string
	Name         string
	Provider     string
	Capabilities Capabilities
	Pricing      Pricing
}
