package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NodeKind string

const (
	KindDeveloper   NodeKind = "Developer"
	KindCommit      NodeKind = "Commit"
	KindFile        NodeKind = "File"
	KindFeature     NodeKind = "Feature"
	KindPullRequest NodeKind = "PullRequest"
)

var AllNodeKinds = []NodeKind{KindDeveloper, KindCommit, KindFile, KindFeature, KindPullRequest}

type RelType string

const (
	RelAuthored   RelType = "AUTHORED"   // Developer -> Commit
	RelModifies   RelType = "MODIFIES"   // Commit -> File
	RelImplements RelType = "IMPLEMENTS" // Commit -> Feature
	RelIncludes   RelType = "INCLUDES"   // PullRequest -> Commit
	RelCreated    RelType = "CREATED"    // Developer -> PullRequest
	RelUses       RelType = "USES"       // File -> File (import / dependency)
)

var AllRelTypes = []RelType{RelAuthored, RelModifies, RelImplements, RelIncludes, RelCreated, RelUses}

// Node is a typed graph record keyed by a natural-key derived id.
type Node struct {
	ID        uuid.UUID      `json:"id"`
	Kind      NodeKind       `json:"kind"`
	Key       string         `json:"key"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Edge is one observed relationship. Duplicates are legal and each represents one event.
type Edge struct {
	From      uuid.UUID      `json:"from"`
	To        uuid.UUID      `json:"to"`
	Type      RelType        `json:"type"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type Developer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

type File struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

type Feature struct {
	Name        string `json:"name"`
	TicketID    string `json:"ticket_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Natural keys. Developer and feature names are case-insensitive.

func (d Developer) NaturalKey() string   { return strings.ToLower(strings.TrimSpace(d.Name)) }
func (c Commit) NaturalKey() string      { return strings.ToLower(strings.TrimSpace(c.Hash)) }
func (f File) NaturalKey() string        { return strings.TrimSpace(f.Path) }
func (f Feature) NaturalKey() string     { return strings.ToLower(strings.TrimSpace(f.Name)) }
func (p PullRequest) NaturalKey() string { return strconv.Itoa(p.Number) }

func (d Developer) Attrs() map[string]any {
	return map[string]any{"name": d.Name, "email": d.Email}
}

func (c Commit) Attrs() map[string]any {
	return map[string]any{"hash": c.Hash, "message": c.Message, "author": c.Author, "timestamp": c.Timestamp}
}

func (f File) Attrs() map[string]any {
	return map[string]any{"path": f.Path, "language": f.Language}
}

func (f Feature) Attrs() map[string]any {
	return map[string]any{"name": f.Name, "ticket_id": f.TicketID, "description": f.Description}
}

func (p PullRequest) Attrs() map[string]any {
	return map[string]any{"number": p.Number, "title": p.Title, "author": p.Author, "state": p.State, "created_at": p.CreatedAt}
}

func DeveloperFromNode(n Node) Developer {
	return Developer{Name: attrString(n.Attrs, "name"), Email: attrString(n.Attrs, "email")}
}

func CommitFromNode(n Node) Commit {
	return Commit{
		Hash:      attrString(n.Attrs, "hash"),
		Message:   attrString(n.Attrs, "message"),
		Author:    attrString(n.Attrs, "author"),
		Timestamp: attrTime(n.Attrs, "timestamp"),
	}
}

func FileFromNode(n Node) File {
	return File{Path: attrString(n.Attrs, "path"), Language: attrString(n.Attrs, "language")}
}

func FeatureFromNode(n Node) Feature {
	return Feature{
		Name:        attrString(n.Attrs, "name"),
		TicketID:    attrString(n.Attrs, "ticket_id"),
		Description: attrString(n.Attrs, "description"),
	}
}

func PullRequestFromNode(n Node) PullRequest {
	num, _ := n.Attrs["number"].(int)
	return PullRequest{
		Number:    num,
		Title:     attrString(n.Attrs, "title"),
		Author:    attrString(n.Attrs, "author"),
		State:     attrString(n.Attrs, "state"),
		CreatedAt: attrTime(n.Attrs, "created_at"),
	}
}

func attrString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func attrTime(m map[string]any, key string) time.Time {
	if m == nil {
		return time.Time{}
	}
	switch v := m[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
