package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"
)

func parseAll(t testing.TB, content string) iter.Seq2[RawRecord, error] {
	t.Helper()
	_, seq, err := Parser{}.Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return seq
}

func TestAccumulate_Scenarios(t *testing.T) {
	s := contactsSchema(t)

	tests := []struct {
		name         string
		content      string
		wantAccepted int
		wantRejected int
	}{
		{
			name:         "one good row",
			content:      "name,age,email\nAlice,30,alice@example.com\n",
			wantAccepted: 1,
		},
		{
			name:         "one bad row",
			content:      "name,age,email\n,thirty,bob@example.com\n",
			wantRejected: 1,
		},
		{
			name:    "header only",
			content: "name,age,email\n",
		},
		{
			name:         "mixed",
			content:      "name,age,email\nA,1,a@x.io\n,2,b@x.io\nC,x,c@x.io\nD,,\nE,5,e@x.io,extra\n",
			wantAccepted: 2,
			wantRejected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Accumulate(s, parseAll(t, tt.content))
			if err != nil {
				t.Fatalf("Accumulate: %v", err)
			}
			if out.AcceptedCount() != tt.wantAccepted || out.RejectedCount() != tt.wantRejected {
				t.Errorf("accepted=%d rejected=%d, want %d/%d",
					out.AcceptedCount(), out.RejectedCount(), tt.wantAccepted, tt.wantRejected)
			}
			if out.Total() != out.AcceptedCount()+out.RejectedCount() {
				t.Errorf("total %d != accepted %d + rejected %d", out.Total(), out.AcceptedCount(), out.RejectedCount())
			}
			if c := out.Counts(); c.Total != tt.wantAccepted+tt.wantRejected {
				t.Errorf("Counts().Total = %d", c.Total)
			}
		})
	}
}

func TestAccumulate_RejectedCarriesReasons(t *testing.T) {
	s := contactsSchema(t)
	out, err := Accumulate(s, parseAll(t, "name,age,email\n,thirty,bob@example.com\n"))
	if err != nil {
		t.Fatal(err)
	}

	rej := out.Rejected()
	if len(rej) != 1 {
		t.Fatalf("got %d rejected, want 1", len(rej))
	}
	want := []string{
		"field 'name' is required but missing",
		"field 'age' does not match numeric pattern",
	}
	if strings.Join(rej[0].Errors, "|") != strings.Join(want, "|") {
		t.Errorf("Errors = %q, want %q", rej[0].Errors, want)
	}
	if v, _ := rej[0].Raw.Get("email"); v != "bob@example.com" {
		t.Errorf("raw record not preserved: email = %q", v)
	}
}

func TestAccumulate_OrderPreserved(t *testing.T) {
	s := contactsSchema(t)

	var b strings.Builder
	b.WriteString("name,age,email\n")
	for i := 1; i <= 500; i++ {
		if i%3 == 0 {
			fmt.Fprintf(&b, ",%d,\n", i)
		} else {
			fmt.Fprintf(&b, "n%d,%d,\n", i, i)
		}
	}

	check := func(t *testing.T, out *BatchOutcome) {
		t.Helper()
		last := 0
		for _, c := range out.Accepted() {
			if c.Row <= last {
				t.Fatalf("accepted rows out of order: %d after %d", c.Row, last)
			}
			last = c.Row
		}
		last = 0
		for _, r := range out.Rejected() {
			if r.Raw.Row <= last {
				t.Fatalf("rejected rows out of order: %d after %d", r.Raw.Row, last)
			}
			last = r.Raw.Row
		}
		if out.Total() != 500 || out.RejectedCount() != 166 {
			t.Errorf("total=%d rejected=%d, want 500/166", out.Total(), out.RejectedCount())
		}
	}

	t.Run("sequential", func(t *testing.T) {
		out, err := Accumulate(s, parseAll(t, b.String()))
		if err != nil {
			t.Fatal(err)
		}
		check(t, out)
	})

	for _, workers := range []int{2, 3, 8, 1000} {
		t.Run(fmt.Sprintf("parallel-%d", workers), func(t *testing.T) {
			out, err := AccumulateParallel(context.Background(), s, parseAll(t, b.String()), workers)
			if err != nil {
				t.Fatal(err)
			}
			check(t, out)
		})
	}
}

func TestAccumulate_MalformedAborts(t *testing.T) {
	s := contactsSchema(t)
	content := "name,age,email\nA,1,a@x.io\nB,\"2,b@x.io\n"

	out, err := Accumulate(s, parseAll(t, content))
	if out != nil {
		t.Error("outcome should be discarded on malformed input")
	}
	if !IsMalformedInput(err) {
		t.Errorf("error = %v, want malformed input", err)
	}

	out, err = AccumulateParallel(context.Background(), s, parseAll(t, content), 4)
	if out != nil || !IsMalformedInput(err) {
		t.Errorf("parallel: out=%v err=%v", out, err)
	}
}

func TestAccumulateParallel_Cancelled(t *testing.T) {
	s := contactsSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := AccumulateParallel(ctx, s, parseAll(t, "name,age,email\nA,1,\nB,2,\n"), 2)
	if out != nil {
		t.Error("outcome should be discarded on cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestAccumulator_Finalize(t *testing.T) {
	s := contactsSchema(t)
	acc := NewAccumulator(s)

	for r, err := range parseAll(t, "name,age,email\nA,1,\n,2,\n") {
		if err != nil {
			t.Fatal(err)
		}
		if err := acc.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	out := acc.Finalize()
	if out.Total() != 2 || out.AcceptedCount() != 1 || out.RejectedCount() != 1 {
		t.Errorf("counts = %+v", out.Counts())
	}

	if err := acc.Add(RawRecord{}); !errors.Is(err, ErrFinalized) {
		t.Errorf("Add after Finalize = %v, want ErrFinalized", err)
	}

	// Accessors return copies.
	acc2 := out.Accepted()
	acc2[0].Row = 99
	if out.Accepted()[0].Row == 99 {
		t.Error("Accepted() exposes internal slice")
	}
}
