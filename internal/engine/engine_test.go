package engine

import (
	"errors"
	"testing"
)

var (
	alice = Member{ID: 1, Name: "Alice"}
	bob   = Member{ID: 2, Name: "Bob"}
	carol = Member{ID: 3, Name: "Carol"}
)

func TestAdmitPlayer(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		actor   Member
		wantErr error
		wantLen int
	}{
		{
			name:    "first player",
			setup:   NewEmptyState(),
			actor:   alice,
			wantLen: 1,
		},
		{
			name:    "duplicate player is rejected",
			setup:   State{Players: []Member{alice}},
			actor:   alice,
			wantErr: ErrAlreadyJoined,
			wantLen: 1,
		},
		{
			name:    "observer cannot also play",
			setup:   State{Observers: []Member{alice}},
			actor:   alice,
			wantErr: ErrRoleConflict,
			wantLen: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AdmitPlayer(tc.setup, tc.actor)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tc.wantErr)
			}
			if len(got.Players) != tc.wantLen {
				t.Fatalf("players: got %d, want %d", len(got.Players), tc.wantLen)
			}
		})
	}
}

func TestAdmitObserver(t *testing.T) {
	cases := []struct {
		name       string
		setup      State
		actor      Member
		privileged bool
		wantErr    error
		wantLen    int
	}{
		{
			name:       "privileged observer",
			setup:      NewEmptyState(),
			actor:      alice,
			privileged: true,
			wantLen:    1,
		},
		{
			name:    "unprivileged is forbidden",
			setup:   NewEmptyState(),
			actor:   alice,
			wantErr: ErrForbidden,
			wantLen: 0,
		},
		{
			name:       "third observer is full",
			setup:      State{Observers: []Member{alice, bob}},
			actor:      carol,
			privileged: true,
			wantErr:    ErrFull,
			wantLen:    2,
		},
		{
			name:       "repeat observer",
			setup:      State{Observers: []Member{alice}},
			actor:      alice,
			privileged: true,
			wantErr:    ErrAlreadyJoined,
			wantLen:    1,
		},
		{
			name:       "full wins over already joined",
			setup:      State{Observers: []Member{alice, bob}},
			actor:      alice,
			privileged: true,
			wantErr:    ErrFull,
			wantLen:    2,
		},
		{
			name:       "player cannot also observe",
			setup:      State{Players: []Member{alice}},
			actor:      alice,
			privileged: true,
			wantErr:    ErrRoleConflict,
			wantLen:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AdmitObserver(tc.setup, tc.actor, tc.privileged)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tc.wantErr)
			}
			if len(got.Observers) != tc.wantLen {
				t.Fatalf("observers: got %d, want %d", len(got.Observers), tc.wantLen)
			}
		})
	}
}

func TestApply_DoesNotAliasInputState(t *testing.T) {
	s := State{Players: make([]Member, 1, 8), Observers: []Member{}}
	s.Players[0] = alice

	_, next, err := Apply(s, Command{Type: CmdJoinPlayer, Actor: bob})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	next.Players[0].Name = "changed"

	if s.Players[0].Name != "Alice" {
		t.Fatalf("input state mutated: %+v", s.Players)
	}
	if len(s.Players) != 1 {
		t.Fatalf("input state grew: %+v", s.Players)
	}
}

func TestApply_EmitsJoinEventsWithSeat(t *testing.T) {
	s := NewEmptyState()

	_, s, err := Apply(s, Command{Type: CmdJoinPlayer, Actor: alice})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	events, s, err := Apply(s, Command{Type: CmdJoinPlayer, Actor: bob})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtPlayerJoined) {
		t.Fatalf("expected EvtPlayerJoined")
	}
	if events[0].Seat != 2 {
		t.Fatalf("seat: got %d, want 2", events[0].Seat)
	}

	events, _, err = Apply(s, Command{Type: CmdJoinObserver, Actor: carol, Privileged: true})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtObserverJoined) {
		t.Fatalf("expected EvtObserverJoined")
	}
}

func TestApply_RejectsUnknownCommand(t *testing.T) {
	_, _, err := Apply(NewEmptyState(), Command{Type: "Kick"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestBatches(t *testing.T) {
	cases := []struct {
		name  string
		n     int
		sizes []int
	}{
		{name: "empty", n: 0, sizes: nil},
		{name: "exact", n: 5, sizes: []int{5}},
		{name: "remainder", n: 12, sizes: []int{5, 5, 2}},
		{name: "single", n: 1, sizes: []int{1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]int, tc.n)
			for i := range items {
				items[i] = i
			}
			got := Batches(items, 5)
			if len(got) != len(tc.sizes) {
				t.Fatalf("batches: got %d, want %d", len(got), len(tc.sizes))
			}
			next := 0
			for i, b := range got {
				if len(b) != tc.sizes[i] {
					t.Fatalf("batch %d: got %d items, want %d", i, len(b), tc.sizes[i])
				}
				for _, v := range b {
					if v != next {
						t.Fatalf("order broken: got %d, want %d", v, next)
					}
					next++
				}
			}
		})
	}
}
