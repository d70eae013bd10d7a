package domain

import (
	"github.com/dagra27407/spinalith-site-sub000/internal/domain/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/domain/narrative"
)

type (
	ControlRecord    = assistant.ControlRecord
	AssistantConfig  = assistant.AssistantConfig
	HTTPPhaseMapping = assistant.HTTPPhaseMapping
	RequestLog       = assistant.RequestLog
	PollingLog       = assistant.PollingLog
	StatusLog        = assistant.StatusLog
	ErrorLog         = assistant.ErrorLog

	NarrativeProject = narrative.Project
	PayloadMap       = narrative.PayloadMap
)
