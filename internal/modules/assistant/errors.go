package assistant

import "errors"

var (
	ErrPhaseMappingNotFound    = errors.New("http phase mapping not found")
	ErrAssistantConfigNotFound = errors.New("assistant configuration not found")
	ErrMissingAssistantID      = errors.New("assistant configuration has no assistant id")
	ErrMissingPrompt           = errors.New("assistant has no prompt for this phase")
	ErrMissingPrerequisiteID   = errors.New("phase prerequisite id missing")
	ErrUnknownAssistantFamily  = errors.New("unknown assistant family")
	ErrConcurrentUpdate        = errors.New("control record changed concurrently")
	ErrUnknownPhase            = errors.New("unknown phase")
)

// IsConfigError reports failures that need an operator fix rather than a retry.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrPhaseMappingNotFound) ||
		errors.Is(err, ErrAssistantConfigNotFound) ||
		errors.Is(err, ErrMissingAssistantID) ||
		errors.Is(err, ErrMissingPrompt) ||
		errors.Is(err, ErrMissingPrerequisiteID) ||
		errors.Is(err, ErrUnknownPhase)
}
