package procs

import (
	"context"
	"fmt"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
)

// CheckSubmissionSourceSize adds a source-oversize hold when a new upload
// package exceeds the configured compressed or uncompressed maxima, and
// lifts the hold once the package shrinks back under them.
func CheckSubmissionSourceSize() process.Definition {
	agent := domain.System("CheckSubmissionSourceSize")
	return process.Define("CheckSubmissionSourceSize",
		process.NewStep("check",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				uncompressedMax, okU := trigger.ParamFloat("UNCOMPRESSED_PACKAGE_MAX")
				compressedMax, okC := trigger.ParamFloat("COMPRESSED_PACKAGE_MAX")
				if !okU || !okC {
					return nil, process.Fail(nil, "missing package size parameters")
				}
				if trigger.After == nil || trigger.After.SourceContent == nil {
					return nil, process.Fail(nil, "missing source content or post-event state")
				}
				source := trigger.After.SourceContent
				reason := fmt.Sprintf("%d bytes; %d bytes compressed",
					source.UncompressedSize, source.CompressedSize)

				oversize := float64(source.UncompressedSize) > uncompressedMax ||
					float64(source.CompressedSize) > compressedMax
				applyHold(agent, trigger, emit, domain.HoldSourceOversize, oversize, reason)
				return nil, nil
			}),
	)
}

// CheckPDFSize asks the compiler for the size of the most recent compiled
// output and adds or removes the pdf-oversize hold against the configured
// limit.
func CheckPDFSize(compiler Compiler) process.Definition {
	agent := domain.System("CheckPDFSize")

	unlimited := retry.DefaultPolicy()
	unlimited.MaxRetries = retry.Unlimited

	getSize := process.NewStep("get_size",
		func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
			if trigger.After == nil || trigger.After.SourceContent == nil {
				return nil, process.Fail(nil, "missing compilation or post-event state")
			}
			compilation := trigger.After.LatestCompilation
			if compilation == nil || compilation.Checksum != trigger.After.SourceContent.Checksum {
				return nil, process.Fail(nil, "no recent compilation to evaluate")
			}
			size, err := compiler.OutputSize(ctx, compilation.SourceID,
				compilation.Checksum, compilation.OutputFormat)
			if err != nil {
				return nil, process.Recover(err, "compiler status request failed; try again")
			}
			return size, nil
		}).WithPolicy(unlimited)

	evaluateSize := process.NewStep("evaluate_size",
		func(_ context.Context, previous any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
			size, ok := previousFloat(previous)
			if !ok {
				return nil, process.Fail(nil, "no compilation size to evaluate")
			}
			limit, ok := trigger.ParamFloat("PDF_LIMIT")
			if !ok {
				return nil, process.Fail(nil, "missing PDF_LIMIT parameter")
			}
			reason := fmt.Sprintf("PDF is %d bytes", int64(size))
			applyHold(agent, trigger, emit, domain.HoldPDFOversize, size > limit, reason)
			return size, nil
		})

	return process.Define("CheckPDFSize", getSize, evaluateSize)
}

// applyHold reconciles one hold kind against the desired state: add the hold
// when wanted and absent, remove every instance when unwanted; already
// matching state emits nothing.
func applyHold(agent domain.Agent, trigger *process.Trigger, emit process.EmitFunc,
	kind domain.HoldKind, wanted bool, reason string) {
	if wanted {
		if trigger.After.HasHold(kind) {
			return
		}
		emit(&domain.AddHold{
			EventBase: domain.NewBase(agent, trigger.After.ID),
			HoldKind:  kind,
			Reason:    reason,
		})
		return
	}
	for eventID, hold := range trigger.After.Holds {
		if hold.Kind == kind {
			emit(&domain.RemoveHold{
				EventBase:   domain.NewBase(agent, trigger.After.ID),
				HoldEventID: eventID,
				HoldKind:    kind,
				Reason:      reason,
			})
		}
	}
}
