package identifier

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"AB1234CD":      "AB1234CD",
		"ab1234cd":      "AB1234CD",
		"  ab1234cd  ":  "AB1234CD",
		"@validname":    "VALIDNAME",
		"@@double":      "DOUBLE",
		"@ 1234":        "1234",
		"1234":          "1234",
		" 0042 ":        "0042",
		"12345":         "12345",
		"":              "",
		"привіт":        "ПРИВІТ",
		"@":             "",
		"mixed @inside": "MIXED @INSIDE",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "@", "@@", "@@@abc", "1234", " 1234", "12345", "ab1234cd",
		"@validname", "@@validname", "ß", "ǆ", "\t@x\n", "@ 1234", "@1234",
	}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestNormalize_CodesUnchanged(t *testing.T) {
	for _, s := range []string{"0000", "1234", "9999", "0420"} {
		if got := Normalize(s); got != s {
			t.Errorf("Normalize(%q) = %q", s, got)
		}
	}
}

func TestIsValid(t *testing.T) {
	accept := []string{"AB1234CD", "ab1234cd", "@validname", "@abcde", "@user_01", "1234"}
	reject := []string{"AB12CD", "@abcd", "12345", "", "validname", "AB1234C", "@bad-name", "12 34", "/start"}
	for _, s := range accept {
		if !IsValid(s) {
			t.Errorf("expected %q to be accepted", s)
		}
	}
	for _, s := range reject {
		if IsValid(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestClassify(t *testing.T) {
	if k := Classify("AB1234CD"); k != KindPlate {
		t.Fatalf("plate: got %q", k)
	}
	if k := Classify("@validname"); k != KindHandle {
		t.Fatalf("handle: got %q", k)
	}
	if k := Classify("1234"); k != KindCode {
		t.Fatalf("code: got %q", k)
	}
	if k := Classify("nope"); k != KindInvalid {
		t.Fatalf("invalid: got %q", k)
	}
}

func TestClassifyNormalized(t *testing.T) {
	if k := ClassifyNormalized(Normalize("@validname")); k != KindHandle {
		t.Fatalf("normalized handle: got %q", k)
	}
	if k := ClassifyNormalized(Normalize("ab1234cd")); k != KindPlate {
		t.Fatalf("normalized plate: got %q", k)
	}
	if k := ClassifyNormalized(Normalize("1234")); k != KindCode {
		t.Fatalf("normalized code: got %q", k)
	}
}
