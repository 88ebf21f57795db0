package workflow

import "podscribe/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 2)
	if set.Downloader != nil {
		stages = append(stages, pipelineStage{
			name:             "download",
			handler:          set.Downloader,
			startStatus:      queue.StatusQueued,
			processingStatus: queue.StatusDownloading,
			doneStatus:       queue.StatusDownloaded,
		})
	}
	if set.Transcriber != nil {
		stages = append(stages, pipelineStage{
			name:             "transcribe",
			handler:          set.Transcriber,
			startStatus:      queue.StatusDownloaded,
			processingStatus: queue.StatusTranscribing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	m.mu.Lock()
	m.pipeline = newStageTable(stages)
	m.mu.Unlock()
}
