package types

import (
	"errors"
	"testing"
)

func TestFingerprintDistance(t *testing.T) {
	a := Fingerprint{Algorithm: HashPerceptual, Bits: 0}
	b := Fingerprint{Algorithm: HashPerceptual, Bits: 0b1011}
	c := Fingerprint{Algorithm: HashPerceptual, Bits: ^uint64(0)}

	if d := a.Distance(b); d != 3 {
		t.Errorf("d(a,b) = %d", d)
	}
	if a.Distance(b) != b.Distance(a) {
		t.Error("distance is not symmetric")
	}
	if d := a.Distance(c); d != 64 {
		t.Errorf("d(a,c) = %d", d)
	}
	if d := b.Distance(b); d != 0 {
		t.Errorf("d(b,b) = %d", d)
	}
}

func TestFingerprintString(t *testing.T) {
	fp := Fingerprint{Algorithm: HashDifference, Bits: 0xabc}
	if s := fp.String(); s != "0000000000000abc" {
		t.Errorf("String = %s", s)
	}

	back, err := ParseFingerprint(HashDifference, fp.String())
	if err != nil || back != fp {
		t.Errorf("ParseFingerprint = %v, %v", back, err)
	}
	if _, err := ParseFingerprint(HashDifference, "xyz"); err == nil {
		t.Error("expected error for bad hex")
	}
}

func TestParseHashAlgorithm(t *testing.T) {
	if a, err := ParseHashAlgorithm(""); err != nil || a != HashPerceptual {
		t.Errorf("default = %s, %v", a, err)
	}
	if a, err := ParseHashAlgorithm("ahash"); err != nil || a != HashAverage {
		t.Errorf("ahash = %s, %v", a, err)
	}
	var ve *ValidationError
	if _, err := ParseHashAlgorithm("md5"); !errors.As(err, &ve) || ve.Field != "algorithm" {
		t.Errorf("md5: %v", err)
	}
}

func TestResizeParamsValidate(t *testing.T) {
	valid := []ResizeParams{
		DefaultResizeParams(),
		{Mode: ModeWidth, Value: 800, Quality: 1, OutputFormat: OutputPNG},
		{Mode: ModeFit, Fit: Size{Width: 10, Height: 10}, Quality: 100, OutputFormat: OutputOriginal},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("%+v: %v", p, err)
		}
	}

	invalid := []struct {
		params ResizeParams
		field  string
	}{
		{ResizeParams{Mode: ModeHeight, Value: 0, Quality: 90, OutputFormat: OutputJPG}, "value"},
		{ResizeParams{Mode: ModeFit, Value: 100, Quality: 90, OutputFormat: OutputJPG}, "value"},
		{ResizeParams{Mode: ModeFit, Fit: Size{Width: 10}, Quality: 90, OutputFormat: OutputJPG}, "value"},
		{ResizeParams{Mode: "zoom", Value: 1, Quality: 90, OutputFormat: OutputJPG}, "mode"},
		{ResizeParams{Mode: ModeMax, Value: 1, Quality: 0, OutputFormat: OutputJPG}, "quality"},
		{ResizeParams{Mode: ModeMax, Value: 1, Quality: 101, OutputFormat: OutputJPG}, "quality"},
		{ResizeParams{Mode: ModeMax, Value: 1, Quality: 50, OutputFormat: "GIF"}, "format"},
	}
	for _, tc := range invalid {
		var ve *ValidationError
		if err := tc.params.Validate(); !errors.As(err, &ve) || ve.Field != tc.field {
			t.Errorf("%+v: got %v, want field %s", tc.params, err, tc.field)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	cases := map[string]OutputFormat{"jpg": OutputJPG, "JPEG": OutputJPG, "Png": OutputPNG, "webp": OutputWEBP, "original": OutputOriginal}
	for in, want := range cases {
		if got, err := ParseOutputFormat(in); err != nil || got != want {
			t.Errorf("%s = %s, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("tiff"); err == nil {
		t.Error("tiff is not an output format")
	}
}

func TestNotFoundErrorUnwrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := error(&NotFoundError{Path: "/x", Err: inner})
	if !errors.Is(err, inner) {
		t.Error("NotFoundError should unwrap")
	}
	if (&NotFoundError{Path: "/x"}).Error() != "directory not found: /x" {
		t.Errorf("message = %s", (&NotFoundError{Path: "/x"}).Error())
	}
}

func TestDuplicateGroupAnchor(t *testing.T) {
	if (DuplicateGroup{}).Anchor() != "" {
		t.Error("empty group anchor")
	}
	g := DuplicateGroup{Paths: []string{"a", "b"}, Distances: []int{0, 2}}
	if g.Anchor() != "a" {
		t.Errorf("anchor = %s", g.Anchor())
	}
}
