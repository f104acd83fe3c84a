package pipeline

import "testing"

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		kind     PageKind
		policy   Policy
		want     State
		wantSlot *Slot
	}{
		{"talk emits current slot", State{1, 3}, TalkPage, Compact, State{1, 4}, &Slot{1, 3}},
		{"marker opens session", State{1, 3}, MarkerPage, Compact, State{2, 1}, nil},
		{"first marker", Initial(), MarkerPage, Compact, State{1, 1}, nil},
		{"failure compacts", State{2, 2}, FailedPage, Compact, State{2, 2}, nil},
		{"failure reserves", State{2, 2}, FailedPage, Reserve, State{2, 3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, slot := Advance(tt.state, tt.kind, tt.policy)
			if got != tt.want {
				t.Errorf("state = %+v, want %+v", got, tt.want)
			}
			switch {
			case tt.wantSlot == nil && slot != nil:
				t.Errorf("Expected no slot, got %+v", *slot)
			case tt.wantSlot != nil && (slot == nil || *slot != *tt.wantSlot):
				t.Errorf("slot = %v, want %+v", slot, *tt.wantSlot)
			}
		})
	}
}

func TestAdvance_SlotsStrictlyIncrease(t *testing.T) {
	kinds := []PageKind{
		TalkPage, MarkerPage, TalkPage, TalkPage, FailedPage, TalkPage,
		MarkerPage, MarkerPage, TalkPage, TalkPage, FailedPage, FailedPage, TalkPage,
	}

	for _, policy := range []Policy{Compact, Reserve} {
		state := Initial()
		var prev *Slot
		for i, k := range kinds {
			before := state
			var slot *Slot
			state, slot = Advance(state, k, policy)

			if k == MarkerPage && state.Sequence != 1 {
				t.Fatalf("%s step %d: expected sequence reset on marker, got %+v", policy, i, state)
			}
			if k == MarkerPage && state.Session != before.Session+1 {
				t.Fatalf("%s step %d: expected session increment, got %+v", policy, i, state)
			}
			if slot == nil {
				continue
			}
			if prev != nil && !(slot.Session > prev.Session || (slot.Session == prev.Session && slot.Sequence > prev.Sequence)) {
				t.Fatalf("%s step %d: slot %+v does not follow %+v", policy, i, *slot, *prev)
			}
			if slot.Sequence < 1 {
				t.Fatalf("%s step %d: sequence must be positive, got %d", policy, i, slot.Sequence)
			}
			prev = slot
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != Compact {
		t.Errorf("Expected default compact, got %q, %v", p, err)
	}
	if p, err := ParsePolicy("reserve"); err != nil || p != Reserve {
		t.Errorf("Expected reserve, got %q, %v", p, err)
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestParseByline(t *testing.T) {
	honorifics := []string{"Sister", "Elder", "President", "Bishop", "Brother"}
	tests := []struct {
		raw  string
		want Byline
	}{
		{"By Elder Gerrit W. Gong", Byline{ID: "gerrit-w-gong", Name: "Gerrit W. Gong", Short: "Elder"}},
		{"Presented By President Russell M. Nelson", Byline{ID: "russell-m-nelson", Name: "Russell M. Nelson", Short: "President"}},
		{"By Jeffrey R. Holland", Byline{ID: "jeffrey-r-holland", Name: "Jeffrey R. Holland", Short: "Jeffrey"}},
		{"By Sister Camille N. Johnson", Byline{ID: "camille-n-johnson", Name: "Camille N. Johnson", Short: "Sister"}},
		{"Elder", Byline{Short: "Elder"}},
		{"", Byline{}},
	}
	for _, tt := range tests {
		if got := ParseByline(tt.raw, honorifics); got != tt.want {
			t.Errorf("ParseByline(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}
