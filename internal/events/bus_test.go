package events

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/learnstack/lms-backend/internal/db/models"
)

func TestPublish_NoSubscribers(t *testing.T) {
	bus := NewBus()
	ev := AssignmentCreated{Assignment: &models.MentorshipAssignment{ID: "assign-1"}}

	if err := bus.Publish(context.Background(), nil, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublish_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	bus.Subscribe("assignment.created", func(_ context.Context, _ sqlx.ExtContext, _ Event) error {
		order = append(order, 1)
		return nil
	})
	bus.Subscribe("assignment.created", func(_ context.Context, _ sqlx.ExtContext, _ Event) error {
		order = append(order, 2)
		return nil
	})

	ev := AssignmentCreated{Assignment: &models.MentorshipAssignment{ID: "assign-1"}}
	if err := bus.Publish(context.Background(), nil, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}

func TestPublish_RoutesByName(t *testing.T) {
	bus := NewBus()
	var got string
	bus.Subscribe("message.sent", func(_ context.Context, _ sqlx.ExtContext, ev Event) error {
		got = ev.Name()
		return nil
	})

	other := AssignmentCreated{Assignment: &models.MentorshipAssignment{ID: "assign-1"}}
	if err := bus.Publish(context.Background(), nil, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("handler fired for wrong event: %s", got)
	}

	msg := MessageSent{
		Message:    &models.MentorMessage{ID: "msg-1"},
		Assignment: &models.MentorshipAssignment{ID: "assign-1"},
	}
	if err := bus.Publish(context.Background(), nil, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "message.sent" {
		t.Errorf("got = %s, want message.sent", got)
	}
}

func TestPublish_FirstErrorAborts(t *testing.T) {
	bus := NewBus()
	errBoom := errors.New("boom")
	secondRan := false
	bus.Subscribe("goal.created", func(_ context.Context, _ sqlx.ExtContext, _ Event) error {
		return errBoom
	})
	bus.Subscribe("goal.created", func(_ context.Context, _ sqlx.ExtContext, _ Event) error {
		secondRan = true
		return nil
	})

	ev := GoalCreated{
		Goal:       &models.MentorshipGoal{ID: "goal-1"},
		Assignment: &models.MentorshipAssignment{ID: "assign-1"},
	}
	err := bus.Publish(context.Background(), nil, ev)
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if secondRan {
		t.Error("second handler should not run after a failure")
	}
}
