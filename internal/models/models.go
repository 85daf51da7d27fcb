package models

// UploadedFile is one file from a multipart upload. It exists only for the
// duration of the ingestion request that carries it; nothing here is persisted.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// RecordMetadata is stored alongside each vector in the index and returned
// verbatim on query.
type RecordMetadata struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	ChunkLength int    `json:"chunk_length"`
}

// VectorRecord is the persisted unit in the vector index. ID is
// "{source}-{chunk index}", deterministic so re-ingesting the same file
// overwrites instead of duplicating. Two distinct files sharing a filename
// collide under this scheme; see DESIGN.md.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata RecordMetadata
}

// QueryMatch is one nearest-neighbour result from the index.
type QueryMatch struct {
	ID       string
	Score    float32
	Metadata RecordMetadata
}

// IndexStats is the index-wide record count as reported by the backend.
// The remote stats endpoint can lag writes by a few seconds.
type IndexStats struct {
	TotalVectorCount int
	Dimension        int
}

// BatchResult records the outcome of one embed+upsert batch. A failed batch
// carries its reason here instead of aborting the run.
type BatchResult struct {
	Batch    int
	Size     int
	Uploaded int
	Err      string
}

// IngestReport is the terminal report of one ingestion run.
type IngestReport struct {
	Message                string `json:"message"`
	FilesProcessed         int    `json:"files_processed"`
	ChunksCreated          int    `json:"chunks_created"`
	TotalVectorsInIndex    int    `json:"total_vectors_in_index"`
	IndexName              string `json:"index_name"`
	PreviousVectorsCleared bool   `json:"previous_vectors_cleared,omitempty"`

	// Per-batch accounting, kept out of the wire format.
	VectorsUploaded int           `json:"-"`
	Batches         []BatchResult `json:"-"`
}
