package repos

import (
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/narrative"
)

type ControlRecordRepo = assistant.ControlRecordRepo
type AssistantConfigRepo = assistant.AssistantConfigRepo
type PhaseMappingRepo = assistant.PhaseMappingRepo
type ActivityLogRepo = assistant.ActivityLogRepo

type NarrativeProjectRepo = narrative.ProjectRepo
type PayloadMapRepo = narrative.PayloadMapRepo
