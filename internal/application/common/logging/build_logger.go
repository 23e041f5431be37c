package logging

import (
	"context"
	"fmt"
	"time"
)

// ExtractorEvent reports the completion of one domain extractor.
type ExtractorEvent struct {
	Kind       string
	Files      int
	Entities   int
	Unresolved int
	Duration   time.Duration
	Error      error
}

// BuildStepEvent reports one build step writing one artifact.
type BuildStepEvent struct {
	Step     string
	Artifact string
	Skipped  bool
	Reason   string
	Counts   map[string]int
	Duration time.Duration
	Error    error
}

// LogExtractorEvent logs extractor completion. Failures log at ERROR, runs with
// unresolved records at WARN and clean runs at INFO.
func (l *applicationLoggerImpl) LogExtractorEvent(ctx context.Context, event ExtractorEvent) {
	fields := Fields{
		"operation":  "extract",
		"extractor":  event.Kind,
		"files":      event.Files,
		"entities":   event.Entities,
		"unresolved": event.Unresolved,
		"duration":   event.Duration.String(),
	}

	switch {
	case event.Error != nil:
		l.log(ctx, "ERROR", fmt.Sprintf("Extractor failed: %s", event.Kind), event.Error.Error(), fields)
	case event.Unresolved > 0:
		l.log(ctx, "WARN", fmt.Sprintf("Extractor finished with unresolved records: %s", event.Kind), "", fields)
	default:
		l.log(ctx, "INFO", fmt.Sprintf("Extractor finished: %s", event.Kind), "", fields)
	}
}

// LogBuildStepEvent logs a build step outcome.
func (l *applicationLoggerImpl) LogBuildStepEvent(ctx context.Context, event BuildStepEvent) {
	fields := Fields{
		"operation": "build_step",
		"step":      event.Step,
		"artifact":  event.Artifact,
		"duration":  event.Duration.String(),
	}
	for k, v := range event.Counts {
		fields[k] = v
	}

	switch {
	case event.Error != nil:
		l.log(ctx, "ERROR", fmt.Sprintf("Build step failed: %s", event.Step), event.Error.Error(), fields)
	case event.Skipped:
		fields["reason"] = event.Reason
		l.log(ctx, "INFO", fmt.Sprintf("Build step skipped: %s", event.Step), "", fields)
	default:
		l.log(ctx, "INFO", fmt.Sprintf("Build step completed: %s", event.Step), "", fields)
	}
}
