package graphiti

import "time"

// DefaultGroupID partitions this system's episodes inside a shared Graphiti
// deployment.
const DefaultGroupID = "analizador-patrones"

// SearchRequest is the body of POST /search
type SearchRequest struct {
	Query    string   `json:"query"`
	GroupIDs []string `json:"group_ids,omitempty"`
	MaxFacts int      `json:"max_facts,omitempty"`
}

// Fact is an edge returned by Graphiti search
type Fact struct {
	UUID      string  `json:"uuid"`
	Name      string  `json:"name"`
	Fact      string  `json:"fact"`
	ValidAt   *string `json:"valid_at"`
	InvalidAt *string `json:"invalid_at"`
	CreatedAt string  `json:"created_at"`
	ExpiredAt *string `json:"expired_at"`
}

type SearchResult struct {
	Facts []Fact `json:"facts"`
}

// Message is one episode submitted through POST /messages
type Message struct {
	Content           string    `json:"content"`
	UUID              string    `json:"uuid,omitempty"`
	Name              string    `json:"name,omitempty"`
	RoleType          string    `json:"role_type"`
	Role              string    `json:"role,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	SourceDescription string    `json:"source_description,omitempty"`
}

type addMessagesRequest struct {
	GroupID  string    `json:"group_id"`
	Messages []Message `json:"messages"`
}

// FactMessage wraps a rendered fact as a system episode.
func FactMessage(text string, at time.Time) Message {
	return Message{
		Content:           text,
		RoleType:          "system",
		Role:              "collections-ingest",
		Timestamp:         at.UTC(),
		SourceDescription: "collection dataset",
	}
}
