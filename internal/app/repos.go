package app

import (
	"gorm.io/gorm"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	assistantrepo "github.com/dagra27407/spinalith-site-sub000/internal/data/repos/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/narrative"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type Repos struct {
	ControlRecord   repos.ControlRecordRepo
	AssistantConfig repos.AssistantConfigRepo
	PhaseMapping    repos.PhaseMappingRepo
	ActivityLog     repos.ActivityLogRepo

	Project    repos.NarrativeProjectRepo
	PayloadMap repos.PayloadMapRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ControlRecord:   assistantrepo.NewControlRecordRepo(db, log),
		AssistantConfig: assistantrepo.NewAssistantConfigRepo(db, log),
		PhaseMapping:    assistantrepo.NewPhaseMappingRepo(db, log),
		ActivityLog:     assistantrepo.NewActivityLogRepo(db, log),

		Project:    narrative.NewProjectRepo(db, log),
		PayloadMap: narrative.NewPayloadMapRepo(db, log),
	}
}
