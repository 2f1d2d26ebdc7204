package admin

// HistoryItem is one question/answer exchange recorded by the backend.
type HistoryItem struct {
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Sources       []string `json:"sources"`
	FilenameScope *string  `json:"filename_scope,omitempty"`
	K             int      `json:"k,omitempty"`
	UseWeb        bool     `json:"use_web,omitempty"`
	Stream        bool     `json:"stream,omitempty"`
	Timestamp     string   `json:"ts,omitempty"`
}

// IngestError reports a file the backend could not ingest.
type IngestError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// IngestResult is the backend's answer to a multi-file upload.
type IngestResult struct {
	Status      string        `json:"status"`
	ChunksAdded int           `json:"chunks_added"`
	Errors      []IngestError `json:"errors,omitempty"`
}

// Health mirrors the backend health probe.
type Health struct {
	OK               bool   `json:"ok"`
	ChromaPath       string `json:"chroma_path,omitempty"`
	AllowGeneralChat bool   `json:"allow_general_chat"`
	EnableWebSearch  bool   `json:"enable_web_search"`
	HasTavilyKey     bool   `json:"has_tavily_key"`
}
