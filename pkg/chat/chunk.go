package chat

import "time"

// ChunkType discriminates the two streamed variants.
type ChunkType string

const (
	ChunkContent ChunkType = "content"
	ChunkError   ChunkType = "error"
)

// Chunk is one incremental unit of a streamed model response. Chunks are
// consumed immediately and never persisted.
type Chunk struct {
	Type      ChunkType `json:"type"`
	Content   string    `json:"content,omitempty"`
	Done      bool      `json:"done,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"-"`
}

func ContentChunk(delta string, done bool) Chunk {
	return Chunk{
		Type:      ChunkContent,
		Content:   delta,
		Done:      done,
		Timestamp: time.Now(),
	}
}

func DoneChunk() Chunk {
	return Chunk{
		Type:      ChunkContent,
		Done:      true,
		Timestamp: time.Now(),
	}
}

func ErrorChunk(msg string) Chunk {
	return Chunk{
		Type:      ChunkError,
		Error:     msg,
		Timestamp: time.Now(),
	}
}

func (c Chunk) IsError() bool {
	return c.Type == ChunkError || c.Error != ""
}
