package router

import (
	"context"

	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

// Split sends pipeline stages to Stages and the downstream parse-response
// hop to Parse, which always lives outside this service.
type Split struct {
	Stages services.StageInvoker
	Parse  services.StageInvoker
}

func (s Split) Invoke(ctx context.Context, call services.StageCall) error {
	if call.Stage == assistant.StageParseResponse && s.Parse != nil {
		return s.Parse.Invoke(ctx, call)
	}
	return s.Stages.Invoke(ctx, call)
}
