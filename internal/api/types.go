package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64         `json:"id"`
	PodcastTitle   string        `json:"podcastTitle"`
	EpisodeTitle   string        `json:"episodeTitle"`
	FeedURL        string        `json:"feedUrl"`
	AudioURL       string        `json:"audioUrl,omitempty"`
	AudioPath      string        `json:"audioPath,omitempty"`
	TranscriptPath string        `json:"transcriptPath,omitempty"`
	Status         string        `json:"status"`
	Progress       QueueProgress `json:"progress"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// DatabaseHealth reports queue database diagnostics.
type DatabaseHealth struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    string   `json:"schemaVersion"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent,omitempty"`
	MissingColumns   []string `json:"missingColumns,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalItems       int      `json:"totalItems"`
	Error            string   `json:"error,omitempty"`
}
