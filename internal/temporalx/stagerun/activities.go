package stagerun

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type Activities struct {
	Log    *logger.Logger
	Stages services.StageService
	// Auth verifies forwarded tokens and mints one when none was forwarded.
	Auth services.AuthService
}

func (a *Activities) Run(ctx context.Context, in Input) (Result, error) {
	if a == nil || a.Stages == nil {
		return Result{}, fmt.Errorf("stagerun: activity not configured")
	}
	id, err := uuid.Parse(strings.TrimSpace(in.RequestID))
	if err != nil || id == uuid.Nil {
		return Result{}, fmt.Errorf("stagerun: invalid request_id")
	}

	ctx, err = a.authContext(ctx, in.Token)
	if err != nil {
		return Result{}, err
	}

	env, err := a.Stages.RunStage(ctx, in.Stage, id)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("stage activity failed", "stage", in.Stage, "request_id", id, "error", err)
		}
		return Result{}, err
	}
	return Result{
		Outcome:     env.Outcome,
		Message:     env.Message,
		Status:      env.Status,
		Next:        env.Next,
		ElapsedTime: env.ElapsedTime,
	}, nil
}

func (a *Activities) authContext(ctx context.Context, token string) (context.Context, error) {
	if a.Auth == nil {
		return ctxutil.WithAuthData(ctx, &ctxutil.AuthData{Subject: services.ServiceSubject, Token: token}), nil
	}
	if token != "" {
		if authed, err := a.Auth.SetContextFromToken(ctx, token); err == nil {
			return authed, nil
		}
		// Forwarded tokens can expire while a hop waits in the queue.
	}
	minted, err := a.Auth.MintServiceToken()
	if err != nil {
		return ctx, fmt.Errorf("stagerun: mint service token: %w", err)
	}
	return a.Auth.SetContextFromToken(ctx, minted)
}
