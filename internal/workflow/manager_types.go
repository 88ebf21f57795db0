package workflow

import (
	"podscribe/internal/queue"
	"podscribe/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Downloader  stage.Handler
	Transcriber stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// stageTable indexes the configured stages by the status that feeds them.
type stageTable struct {
	stages       []pipelineStage
	statusOrder  []queue.Status
	stageByStart map[queue.Status]pipelineStage
}

func newStageTable(stages []pipelineStage) *stageTable {
	table := &stageTable{
		stages:       stages,
		statusOrder:  make([]queue.Status, 0, len(stages)),
		stageByStart: make(map[queue.Status]pipelineStage, len(stages)),
	}
	for _, stg := range stages {
		table.stageByStart[stg.startStatus] = stg
		table.statusOrder = append(table.statusOrder, stg.startStatus)
	}
	return table
}

func (t *stageTable) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if t == nil {
		return pipelineStage{}, false
	}
	stg, ok := t.stageByStart[status]
	return stg, ok
}
