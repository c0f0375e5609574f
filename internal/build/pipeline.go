package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/felixgeelhaar/statekit"
)

const (
	eventOK   = "OK"
	eventFail = "FAIL"
)

// Machine states. Every stage state is named after its key.
const (
	stateBeforeInstall = "before_install"
	stateInstall       = "install"
	stateBeforeScript  = "before_script"
	stateScript        = "script"
	stateAfterSuccess  = "after_success"
	stateAfterFailure  = "after_failure"
	stateAfterScript   = "after_script"
	stateAborted       = "aborted"
	stateDone          = "done"
)

// Machine context. Stage outcomes are tracked by the pipeline.
type pipelineContext struct{}

// Runs the stages of a build configuration in order.
//
// The three preparation stages run first and any failure among them aborts
// the pipeline. The script stage decides the outcome and selects which of
// after_success or after_failure runs next; after_script always runs last.
// Failures in those trailing stages end the stage early but never change
// the outcome.
type Pipeline struct {
	runner Runner
	log    *slog.Logger
}

// Creates a pipeline that runs every command through runner.
func NewPipeline(runner Runner, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{runner: runner, log: log}
}

// Runs the pipeline for cfg.
//
// The result status is [StatusPassed] or [StatusFailed] depending on the
// script stage alone, and carries the script error if any. A failure in a
// preparation stage is returned as an error and no further stage runs.
func (p *Pipeline) Run(ctx context.Context, cfg manifest.Config) (*Result, error) {
	interp, err := newStageMachine()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	interp.Start()
	defer interp.Stop()

	result := &Result{Status: StatusPassed}
	var abortErr error

	for {
		state := string(interp.State().Value)
		if state == stateDone || state == stateAborted {
			break
		}

		stage := manifest.Stage(state)
		err := p.runStage(ctx, stage, cfg.Stage(stage))

		var event statekit.EventType = eventOK
		switch {
		case err == nil:
		case stage == manifest.Script:
			result.Status = StatusFailed
			result.Err = err
			event = eventFail
		case isPreparation(stage):
			abortErr = err
			event = eventFail
		default:
			p.log.Warn("stage failed", "stage", state, "error", err)
			event = eventFail
		}

		interp.Send(statekit.Event{Type: event})
	}

	if abortErr != nil {
		return nil, abortErr
	}
	return result, nil
}

// Runs the commands of a single stage, stopping at the first failure.
func (p *Pipeline) runStage(ctx context.Context, stage manifest.Stage, commands []string) error {
	log := p.log.With("stage", string(stage))
	log.Info(fmt.Sprintf("running script for `%s` stage", stage))

	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runner.Run(ctx, log, command); err != nil {
			return fmt.Errorf("%s step %d: %w", stage, i+1, err)
		}
	}
	return nil
}

// Whether a failure in stage aborts the pipeline.
func isPreparation(stage manifest.Stage) bool {
	switch stage {
	case manifest.BeforeInstall, manifest.Install, manifest.BeforeScript:
		return true
	}
	return false
}

// Builds the stage machine.
//
// Every stage is a state named after its key. Each state leaves on OK or
// FAIL; only the preparation stages and script route the two differently.
func newStageMachine() (*statekit.Interpreter[pipelineContext], error) {
	machine, err := statekit.NewMachine[pipelineContext]("cibox-pipeline").
		WithInitial(stateBeforeInstall).
		WithContext(pipelineContext{}).
		State(stateBeforeInstall).
		On(eventOK).Target(stateInstall).
		On(eventFail).Target(stateAborted).Done().
		State(stateInstall).
		On(eventOK).Target(stateBeforeScript).
		On(eventFail).Target(stateAborted).Done().
		State(stateBeforeScript).
		On(eventOK).Target(stateScript).
		On(eventFail).Target(stateAborted).Done().
		State(stateScript).
		On(eventOK).Target(stateAfterSuccess).
		On(eventFail).Target(stateAfterFailure).Done().
		State(stateAfterSuccess).
		On(eventOK).Target(stateAfterScript).
		On(eventFail).Target(stateAfterScript).Done().
		State(stateAfterFailure).
		On(eventOK).Target(stateAfterScript).
		On(eventFail).Target(stateAfterScript).Done().
		State(stateAfterScript).
		On(eventOK).Target(stateDone).
		On(eventFail).Target(stateDone).Done().
		State(stateAborted).Done().
		State(stateDone).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}
