package validate

import "testing"

func TestNumberAccepts(t *testing.T) {
	for _, in := range []string{
		"0", "42", "-7", "+3", "3.14", ".5", "5.", "1e3", "-2.5E-4",
		"  12  ", "", "   ", "0x1F", "0b101", "0o17", "Infinity", "-Infinity",
	} {
		if res := Number(in); !res.Valid {
			t.Fatalf("Number(%q) rejected: %q", in, res.Msg)
		}
	}
}

func TestNumberRejects(t *testing.T) {
	for _, in := range []string{
		"abc", "NaN", "inf", "infinity", "1,000", "1_000", "12abc", "0x", "0xZZ", "1e", "--1", "1.2.3",
	} {
		res := Number(in)
		if res.Valid {
			t.Fatalf("Number(%q) accepted, want rejection", in)
		}
		if res.Msg != NumberMessage {
			t.Fatalf("Number(%q) msg = %q, want %q", in, res.Msg, NumberMessage)
		}
	}
}

func TestChainStopsAtFirstRejection(t *testing.T) {
	calls := 0
	count := func(string) Result {
		calls++
		return OK()
	}
	notEmpty := func(v string) Result {
		if v == "" {
			return Reject("required")
		}
		return OK()
	}
	v := Chain(count, notEmpty, Number, count)

	if res := v(""); res.Valid || res.Msg != "required" {
		t.Fatalf("Chain(\"\") = %+v, want required rejection", res)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if res := v("x"); res.Valid || res.Msg != NumberMessage {
		t.Fatalf("Chain(\"x\") = %+v, want number rejection", res)
	}
	if res := v("9"); !res.Valid {
		t.Fatalf("Chain(\"9\") rejected: %q", res.Msg)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
}

func TestChainSkipsNil(t *testing.T) {
	if res := Chain(nil, nil)("anything"); !res.Valid {
		t.Fatalf("Chain(nil) rejected: %q", res.Msg)
	}
}
