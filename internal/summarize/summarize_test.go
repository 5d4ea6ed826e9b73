package summarize

import "testing"

func TestSummarizeTakesFirstThreeFragments(t *testing.T) {
	in := "First sentence. Second sentence. Third sentence. Fourth sentence."
	got := Summarize(in)
	want := "First sentence. Second sentence. Third sentence."
	if got != want {
		t.Fatalf("Summarize(%q) = %q, want %q", in, got, want)
	}
}

func TestSummarizeFewerThanThreeFragments(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Only one sentence", "Only one sentence."},
		{"One. Two", "One. Two."},
		{"No terminal punctuation here", "No terminal punctuation here."},
	}
	for _, tc := range cases {
		if got := Summarize(tc.in); got != tc.want {
			t.Errorf("Summarize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSummarizeMixedDelimiterRuns(t *testing.T) {
	in := "Really?! Yes... Absolutely! And more. And more still."
	got := Summarize(in)
	want := "Really. Yes. Absolutely."
	if got != want {
		t.Fatalf("Summarize(%q) = %q, want %q", in, got, want)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "...", "?!?.", ". . ."} {
		if got := Summarize(in); got != "." {
			t.Errorf("Summarize(%q) = %q, want %q", in, got, ".")
		}
	}
}
