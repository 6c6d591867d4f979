package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
)

func cleanStep(heading, body string, timestamp int) (string, string, error) {
	heading, err := cleanTitle("heading", heading)
	if err != nil {
		return "", "", err
	}
	if timestamp < 0 {
		return "", "", fmt.Errorf("%w: timestamp must not be negative", ErrInvalidInput)
	}
	return heading, strings.TrimSpace(body), nil
}

// AddStep appends a step to the SOP. Concurrent appends race on the next
// position; the store reports the loss as ErrRetryable.
func (s *Service) AddStep(ctx context.Context, actor rbac.Caller, sopID string, in StepInput) (Step, error) {
	sop, err := s.loadSOP(ctx, actor, sopID, rbac.ActionEdit)
	if err != nil {
		return Step{}, err
	}
	heading, body, err := cleanStep(in.Heading, in.Body, in.Timestamp)
	if err != nil {
		return Step{}, err
	}
	for attempt := 1; ; attempt++ {
		st, err := s.store.AppendStep(ctx, Step{
			ID:        ids.New(),
			SOPID:     sop.ID,
			Heading:   heading,
			Body:      body,
			Timestamp: in.Timestamp,
			CreatedAt: s.now().UTC(),
		})
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, ErrRetryable) {
			return Step{}, err
		}
		if attempt >= stepAppendAttempts {
			return Step{}, fmt.Errorf("%w: unable to create step", ErrConflict)
		}
		if err := ctx.Err(); err != nil {
			return Step{}, err
		}
	}
}

// stepWithSOP resolves a step and checks action on its SOP.
func (s *Service) stepWithSOP(ctx context.Context, actor rbac.Caller, id string, action rbac.Action) (Step, SOP, error) {
	st, err := s.store.GetStep(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return Step{}, SOP{}, hideMissing(err, "step")
	}
	sop, err := s.loadSOP(ctx, actor, st.SOPID, action)
	if err != nil {
		return Step{}, SOP{}, err
	}
	return st, sop, nil
}

func (s *Service) UpdateStep(ctx context.Context, actor rbac.Caller, id string, upd StepUpdate) (Step, error) {
	st, _, err := s.stepWithSOP(ctx, actor, id, rbac.ActionEdit)
	if err != nil {
		return Step{}, err
	}
	heading, body, ts := st.Heading, st.Body, st.Timestamp
	if upd.Heading != nil {
		heading = *upd.Heading
	}
	if upd.Body != nil {
		body = *upd.Body
	}
	if upd.Timestamp != nil {
		ts = *upd.Timestamp
	}
	heading, body, err = cleanStep(heading, body, ts)
	if err != nil {
		return Step{}, err
	}
	return s.store.UpdateStep(ctx, st.ID, StepUpdate{Heading: &heading, Body: &body, Timestamp: &ts})
}

// DeleteStep removes the step and closes the gap in the SOP's numbering.
func (s *Service) DeleteStep(ctx context.Context, actor rbac.Caller, id string) error {
	st, sop, err := s.stepWithSOP(ctx, actor, id, rbac.ActionEdit)
	if err != nil {
		return err
	}
	if err := s.store.DeleteStep(ctx, st.ID); err != nil {
		return err
	}
	rest, err := s.stepIDs(ctx, sop.ID)
	if err != nil || len(rest) == 0 {
		return err
	}
	return s.store.SetStepOrder(ctx, sop.ID, ordering.Renumber(rest, ordering.StepBase))
}

func (s *Service) stepIDs(ctx context.Context, sopID string) ([]string, error) {
	steps, err := s.store.ListSteps(ctx, sopID)
	if err != nil {
		return nil, err
	}
	known := make([]string, len(steps))
	for i, st := range steps {
		known[i] = st.ID
	}
	return known, nil
}

// ReorderSteps sets explicit positions for the steps of one SOP.
func (s *Service) ReorderSteps(ctx context.Context, actor rbac.Caller, sopID string, items []ordering.Item) error {
	sop, err := s.loadSOP(ctx, actor, sopID, rbac.ActionEdit)
	if err != nil {
		return err
	}
	known, err := s.stepIDs(ctx, sop.ID)
	if err != nil {
		return err
	}
	if err := ordering.Validate(items, known); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.SetStepOrder(ctx, sop.ID, items)
}

// MoveStep swaps a step with its neighbour.
func (s *Service) MoveStep(ctx context.Context, actor rbac.Caller, id string, dir ordering.Direction) ([]ordering.Item, error) {
	st, sop, err := s.stepWithSOP(ctx, actor, id, rbac.ActionEdit)
	if err != nil {
		return nil, err
	}
	known, err := s.stepIDs(ctx, sop.ID)
	if err != nil {
		return nil, err
	}
	items, err := ordering.Move(known, st.ID, dir, ordering.StepBase)
	if err != nil {
		return nil, orderingError(err, "step")
	}
	if err := s.store.SetStepOrder(ctx, sop.ID, items); err != nil {
		return nil, err
	}
	return items, nil
}
