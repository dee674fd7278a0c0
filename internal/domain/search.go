package domain

// ChunkMetadata is the payload stored next to every indexed chunk.
type ChunkMetadata struct {
	FilePath  string `json:"filePath"`
	ChunkID   string `json:"chunkId"`
	Title     string `json:"title,omitempty"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Language  string `json:"language,omitempty"`
	ChunkType string `json:"chunkType,omitempty"`
}

// SearchHit is a similarity-scored chunk. Similarity is in [0,1].
type SearchHit struct {
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity_score"`
}

// Chunk is an indexable unit produced by the chunker.
type Chunk struct {
	Content      string  `json:"content"`
	FilePath     string  `json:"filePath"`
	ChunkType    string  `json:"chunkType"`
	Language     string  `json:"language"`
	Title        string  `json:"title,omitempty"`
	Description  string  `json:"description,omitempty"`
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	QualityScore float64 `json:"qualityScore"`
}

const (
	ChunkTypeFunction      = "function"
	ChunkTypeClass         = "class"
	ChunkTypeAPIDefinition = "api_definition"
	ChunkTypeDocumentation = "documentation"
	ChunkTypeConfig        = "config"
	ChunkTypeGeneric       = "generic"
)
