package review

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Reviewer produces a review for a collected change payload.
type Reviewer interface {
	Review(ctx context.Context, payload string) (string, error)
}

// Workflow ties collection, review and persistence together.
type Workflow struct {
	collector *Collector
	reviewer  Reviewer
	sink      Sink
	logger    zerolog.Logger
}

// Outcome describes a finished review run.
type Outcome struct {
	Review     string
	ReportPath string
	Empty      bool
}

// NewWorkflow creates a review workflow.
func NewWorkflow(collector *Collector, reviewer Reviewer, sink Sink, logger zerolog.Logger) (*Workflow, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if reviewer == nil {
		return nil, fmt.Errorf("reviewer is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	return &Workflow{
		collector: collector,
		reviewer:  reviewer,
		sink:      sink,
		logger:    logger,
	}, nil
}

// Run collects pending changes, reviews them and stores the report. A clean
// working tree yields an Empty outcome without calling the reviewer.
func (w *Workflow) Run(ctx context.Context) (*Outcome, error) {
	payload, err := w.collector.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		w.logger.Info().Msg("No pending changes to review")
		return &Outcome{Empty: true}, nil
	}

	review, err := w.reviewer.Review(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("review failed: %w", err)
	}

	path, err := w.sink.Store(review, payload)
	if err != nil {
		return nil, err
	}

	return &Outcome{Review: review, ReportPath: path}, nil
}
