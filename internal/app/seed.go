package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// DefaultPhaseMappings are the threads-API calls for each conversation phase.
func DefaultPhaseMappings(logicKey, baseURL string) []*types.HTTPPhaseMapping {
	threads := baseURL + "/threads"
	messages := threads + "/{{thread_id}}/messages"
	runs := threads + "/{{thread_id}}/runs"
	row := func(phase, method, url string) *types.HTTPPhaseMapping {
		return &types.HTTPPhaseMapping{
			RequestKey:  "openai_threads",
			LogicKey:    logicKey,
			Phase:       phase,
			Method:      method,
			URLTemplate: url,
			ContentType: "application/json",
			Provider:    llm.ProviderOpenAI,
		}
	}
	return []*types.HTTPPhaseMapping{
		row(assistant.PhaseInitiateConversation, http.MethodPost, threads),
		row(assistant.PhasePostMessage, http.MethodPost, messages),
		row(assistant.PhaseStartRun, http.MethodPost, runs),
		row(assistant.PhasePollRunStatus, http.MethodGet, runs+"/{{run_id}}"),
		row(assistant.PhaseRetrieveResponse, http.MethodGet, messages+"?limit=1&order=desc"),
		row(assistant.PhaseRequestNextBatch, http.MethodPost, messages),
		row(assistant.PhaseResendLastResponse, http.MethodPost, messages),
	}
}

// seedPhaseMappings inserts missing default mappings and leaves existing rows alone.
func seedPhaseMappings(ctx context.Context, log *logger.Logger, mappings repos.PhaseMappingRepo, logicKey, baseURL string) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	inserted := 0
	for _, m := range DefaultPhaseMappings(logicKey, baseURL) {
		existing, err := mappings.Get(dbc, m.LogicKey, m.Phase)
		if err != nil {
			return inserted, fmt.Errorf("load phase mapping %s/%s: %w", m.LogicKey, m.Phase, err)
		}
		if existing != nil {
			continue
		}
		if err := mappings.Upsert(dbc, m); err != nil {
			return inserted, fmt.Errorf("seed phase mapping %s/%s: %w", m.LogicKey, m.Phase, err)
		}
		inserted++
	}
	if inserted > 0 {
		log.Info("Seeded phase mappings", "logic_key", logicKey, "inserted", inserted)
	}
	return inserted, nil
}
