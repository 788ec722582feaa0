package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"open", StatusOpen, true},
		{"in progress", StatusInProgress, true},
		{"closed", StatusClosed, true},
		{"none sentinel", StatusNone, false},
		{"unknown", Status("Rejected"), false},
		{"empty", Status(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("Status.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
		wantErr  bool
	}{
		{"Open", StatusOpen, false},
		{"open", StatusOpen, false},
		{"In Progress", StatusInProgress, false},
		{"in_progress", StatusInProgress, false},
		{"IN-PROGRESS", StatusInProgress, false},
		{" Closed ", StatusClosed, false},
		{"none", "", true},
		{"Archived", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Errorf("ParseStatus(%q) error = %v, want ErrInvalidStatus", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPermissive_AllowsEveryDistinctPair(t *testing.T) {
	p := Permissive()

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if from == to {
				if err := p.Check(context.Background(), from, to); !errors.Is(err, ErrTransitionNotAllowed) {
					t.Errorf("Check(%s, %s) error = %v, want ErrTransitionNotAllowed for same status", from, to, err)
				}
				continue
			}
			if err := p.Check(context.Background(), from, to); err != nil {
				t.Errorf("Check(%s, %s) unexpected error: %v", from, to, err)
			}
		}
	}
}

func TestBuilder_Permit(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatusOpen).Permit(StatusInProgress)
	builder.Configure(StatusInProgress).Permit(StatusClosed)

	p := builder.Build()
	ctx := context.Background()

	if err := p.Check(ctx, StatusOpen, StatusInProgress); err != nil {
		t.Errorf("Check(Open, In Progress) unexpected error: %v", err)
	}

	err := p.Check(ctx, StatusClosed, StatusOpen)
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Check(Closed, Open) error = %v, want ErrTransitionNotAllowed", err)
	}
}

func TestBuilder_PermitIf(t *testing.T) {
	allowed := false
	guard := func(ctx context.Context) bool { return allowed }

	builder := NewBuilder()
	builder.Configure(StatusClosed).PermitIf(StatusOpen, guard)
	p := builder.Build()

	err := p.Check(context.Background(), StatusClosed, StatusOpen)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Check() with failing guard error = %v, want ErrGuardFailed", err)
	}

	allowed = true
	if err := p.Check(context.Background(), StatusClosed, StatusOpen); err != nil {
		t.Errorf("Check() with passing guard unexpected error: %v", err)
	}
}

func TestBuilder_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatusOpen).Permit(StatusInProgress)
	p := builder.Build()

	builder.Configure(StatusOpen).Permit(StatusClosed)

	if err := p.Check(context.Background(), StatusOpen, StatusClosed); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Error("policy changed after Build()")
	}
	if targets := p.Targets(StatusOpen); len(targets) != 1 || targets[0] != StatusInProgress {
		t.Errorf("Targets(Open) = %v, want [In Progress]", targets)
	}
}

func TestBuilder_ConfigureInvalidStatusPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() with invalid status did not panic")
		}
	}()

	NewBuilder().Configure(StatusNone)
}

func TestBuilder_PermitInvalidTargetPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() with invalid target did not panic")
		}
	}()

	NewBuilder().Configure(StatusOpen).Permit(Status("Archived"))
}

func TestPolicy_Targets(t *testing.T) {
	targets := Permissive().Targets(StatusInProgress)

	if len(targets) != 2 || targets[0] != StatusOpen || targets[1] != StatusClosed {
		t.Errorf("Targets(In Progress) = %v, want [Open Closed]", targets)
	}
}

func TestEngine_Decide(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := NewEngine(nil)
	ctx := context.Background()

	t.Run("real transition", func(t *testing.T) {
		tr, err := engine.Decide(ctx, StatusOpen, StatusInProgress, "alice", base, base.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Decide() unexpected error: %v", err)
		}
		if !tr.Changed || tr.From != StatusOpen || tr.To != StatusInProgress {
			t.Errorf("Decide() = %+v, want Open -> In Progress", tr)
		}
		if tr.ChangedBy != "alice" || !tr.ChangedAt.Equal(base) {
			t.Errorf("Decide() actor/time = %s/%v", tr.ChangedBy, tr.ChangedAt)
		}
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		tr, err := engine.Decide(ctx, StatusOpen, StatusOpen, "alice", base, base)
		if err != nil {
			t.Fatalf("Decide() unexpected error: %v", err)
		}
		if tr.Changed {
			t.Error("Decide() same status reported a change")
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := engine.Decide(ctx, StatusOpen, Status("Done"), "alice", base, base)
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Decide() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("none is not a valid target", func(t *testing.T) {
		_, err := engine.Decide(ctx, StatusOpen, StatusNone, "alice", base, base)
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Decide() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("timestamp clamped to last change", func(t *testing.T) {
		last := base.Add(time.Minute)
		tr, err := engine.Decide(ctx, StatusOpen, StatusClosed, "bob", base, last)
		if err != nil {
			t.Fatalf("Decide() unexpected error: %v", err)
		}
		if !tr.ChangedAt.Equal(last) {
			t.Errorf("ChangedAt = %v, want %v", tr.ChangedAt, last)
		}
	})

	t.Run("empty actor defaults to system", func(t *testing.T) {
		tr, err := engine.Decide(ctx, StatusClosed, StatusOpen, "  ", base, base)
		if err != nil {
			t.Fatalf("Decide() unexpected error: %v", err)
		}
		if tr.ChangedBy != SystemActor {
			t.Errorf("ChangedBy = %q, want %q", tr.ChangedBy, SystemActor)
		}
	})
}

func TestEngine_DecideWithStrictPolicy(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatusOpen).Permit(StatusInProgress)
	builder.Configure(StatusInProgress).Permit(StatusClosed)
	engine := NewEngine(builder.Build())

	now := time.Now()
	_, err := engine.Decide(context.Background(), StatusClosed, StatusOpen, "carol", now, now)
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Decide(Closed, Open) error = %v, want ErrTransitionNotAllowed", err)
	}
}
