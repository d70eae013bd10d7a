package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
)

func SeedControlRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, assistantName string, status string) *types.ControlRecord {
	tb.Helper()
	zero := 0
	rec := &types.ControlRecord{
		Status:          status,
		WFAssistantName: assistantName,
		GPTPrompt:       "prompt",
		GPTJSON:         `{"chapters":[]}`,
		RetryCount:      &zero,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed control record: %v", err)
	}
	return rec
}

func SeedAssistantConfig(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, batchStyle string) *types.AssistantConfig {
	tb.Helper()
	cfg := &types.AssistantConfig{
		AssistantName:  name,
		AssistantID:    "asst_" + name,
		Provider:       "openai",
		Model:          "gpt-4o",
		BatchStyle:     batchStyle,
		ContinuePrompt: "continue",
		ResendPrompt:   "resend",
	}
	if err := tx.WithContext(ctx).Create(cfg).Error; err != nil {
		tb.Fatalf("seed assistant config: %v", err)
	}
	return cfg
}

func SeedPhaseMapping(tb testing.TB, ctx context.Context, tx *gorm.DB, logicKey, phase, method, urlTemplate string) *types.HTTPPhaseMapping {
	tb.Helper()
	m := &types.HTTPPhaseMapping{
		RequestKey:  "openai_threads",
		LogicKey:    logicKey,
		Phase:       phase,
		Method:      method,
		URLTemplate: urlTemplate,
		ContentType: "application/json",
		Provider:    "openai",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed phase mapping: %v", err)
	}
	return m
}
