package model

// KnowledgeBase is the remote container documents are uploaded into. Exactly
// one is active per credential; it is resolved once and held in memory only.
type KnowledgeBase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
