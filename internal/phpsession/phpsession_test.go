package phpsession

import (
	"bytes"
	"testing"
)

// These two payloads are the same fixtures net_ws.c's test_php_unserialize
// exercises, byte for byte, including the string value embedding an
// unescaped '"' and '|' inside a length-prefixed string.
const (
	fixtureSimple = `foo|b:1;string|s:3:"123";arr|a:3:{i:0;i:4;i:1;i:3;i:2;s:1:"2";}`

	fixtureSession = `webmail|a:11:{s:6:"server";s:9:"localhost";s:4:"port";i:143;s:6:"secure";b:0;s:10:"smtpserver";s:9:"localhost";s:8:"smtpport";i:587;s:10:"smtpsecure";s:4:"none";s:8:"username";s:4:"test";s:8:"password";s:4:"test";s:10:"loginlimit";i:0;s:6:"append";b:1;s:6:"active";i:1686046936;}test|b:1;testing|s:9:"4|4test"s";arr|a:3:{i:0;i:4;i:1;i:3;i:2;s:1:"2";}`
)

func TestUnserializeRoundTrip(t *testing.T) {
	for _, fixture := range []string{fixtureSimple, fixtureSession} {
		vars, err := Unserialize([]byte(fixture))
		if err != nil {
			t.Fatalf("Unserialize(%q): %v", fixture, err)
		}
		got := Serialize(vars)
		if !bytes.Equal(got, []byte(fixture)) {
			t.Fatalf("round trip mismatch:\n in  = %s\n out = %s", fixture, got)
		}
	}
}

func TestUnserializeSimpleFixtureValues(t *testing.T) {
	vars, err := Unserialize([]byte(fixtureSimple))
	if err != nil {
		t.Fatalf("Unserialize: %v", err)
	}
	if len(vars) != 3 {
		t.Fatalf("expected 3 top-level vars, got %d", len(vars))
	}

	foo, ok := Find(vars, "foo")
	if !ok || foo.Kind != KindBool || !foo.Bool {
		t.Fatalf("foo = %+v, ok=%v", foo, ok)
	}
	str, ok := Find(vars, "string")
	if !ok || str.Kind != KindString || str.String != "123" {
		t.Fatalf("string = %+v, ok=%v", str, ok)
	}
	arr, ok := Find(vars, "arr")
	if !ok || arr.Kind != KindArray || len(arr.Array) != 3 {
		t.Fatalf("arr = %+v, ok=%v", arr, ok)
	}
	if arr.Array[2].Value.Kind != KindString || arr.Array[2].Value.String != "2" {
		t.Fatalf("arr[2].Value = %+v", arr.Array[2].Value)
	}
}

func TestUnserializeSessionFixtureEmbeddedQuote(t *testing.T) {
	vars, err := Unserialize([]byte(fixtureSession))
	if err != nil {
		t.Fatalf("Unserialize: %v", err)
	}
	testing_, ok := Find(vars, "testing")
	if !ok || testing_.Kind != KindString {
		t.Fatalf("testing = %+v, ok=%v", testing_, ok)
	}
	want := `4|4test"s`
	if testing_.String != want {
		t.Fatalf("testing string = %q, want %q", testing_.String, want)
	}
}

func TestUnserializeRejectsOversizedStringLength(t *testing.T) {
	// Declares a 9999-byte string but the buffer only holds a handful —
	// must error, not read past the end of the slice.
	_, err := Unserialize([]byte(`k|s:9999:"short";`))
	if err == nil {
		t.Fatal("expected error for string length exceeding remaining buffer")
	}
}

func TestUnserializeRejectsNegativeLookingLength(t *testing.T) {
	_, err := Unserialize([]byte(`k|s:-1:"x";`))
	if err == nil {
		t.Fatal("expected error for malformed negative length")
	}
}

func TestUnserializeRejectsTruncatedArray(t *testing.T) {
	// Declares 3 entries but supplies only 1 key/value pair before EOF.
	_, err := Unserialize([]byte(`k|a:3:{i:0;i:1;}`))
	if err == nil {
		t.Fatal("expected error for array entry count mismatch")
	}
}

func TestUnserializeRejectsMissingValueSeparator(t *testing.T) {
	_, err := Unserialize([]byte(`k`))
	if err == nil {
		t.Fatal("expected error for key with no value")
	}
}

func TestUnserializeRejectsBadBoolDigit(t *testing.T) {
	_, err := Unserialize([]byte(`k|b:2;`))
	if err == nil {
		t.Fatal("expected error for invalid bool digit")
	}
}

func TestUnserializeRejectsUnknownType(t *testing.T) {
	_, err := Unserialize([]byte(`k|x:1;`))
	if err == nil {
		t.Fatal("expected error for unknown value type")
	}
}

func TestSerializeEmptyArray(t *testing.T) {
	vars := []Var{{Name: "k", Value: Value{Kind: KindArray}}}
	got := string(Serialize(vars))
	if got != `k|a:0:{}` {
		t.Fatalf("got %q", got)
	}
	back, err := Unserialize([]byte(got))
	if err != nil {
		t.Fatalf("Unserialize: %v", err)
	}
	if len(back) != 1 || back[0].Value.Kind != KindArray || len(back[0].Value.Array) != 0 {
		t.Fatalf("round trip of empty array failed: %+v", back)
	}
}
