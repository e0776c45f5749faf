package format

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry LogEntry
	}{
		{name: "set", entry: LogEntry{Kind: KindSet, Key: "a", Value: "1"}},
		{name: "set empty value", entry: LogEntry{Kind: KindSet, Key: "a", Value: ""}},
		{name: "remove", entry: LogEntry{Kind: KindRemove, Key: "a"}},
		{name: "long key and value", entry: LogEntry{Kind: KindSet, Key: string(make([]byte, 500)), Value: string(make([]byte, 2000))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Encode(tt.entry)
			got, err := Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Kind != tt.entry.Kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.entry.Kind)
			}
			if got.Key != tt.entry.Key {
				t.Errorf("Key = %q, want %q", got.Key, tt.entry.Key)
			}
			wantValue := tt.entry.Value
			if tt.entry.Kind == KindRemove {
				wantValue = ""
			}
			if got.Value != wantValue {
				t.Errorf("Value = %q, want %q", got.Value, wantValue)
			}
		})
	}
}

func TestDecode_SelfDelimiting(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Encode(LogEntry{Kind: KindSet, Key: "a", Value: "1"}))
	buf.Write(Encode(LogEntry{Kind: KindSet, Key: "b", Value: "2"}))

	r := bytes.NewReader(buf.Bytes())

	first, err := Decode(r)
	if err != nil {
		t.Fatalf("first Decode() error = %v", err)
	}
	if first.Key != "a" {
		t.Fatalf("first.Key = %q, want a", first.Key)
	}

	second, err := Decode(r)
	if err != nil {
		t.Fatalf("second Decode() error = %v", err)
	}
	if second.Key != "b" {
		t.Fatalf("second.Key = %q, want b", second.Key)
	}

	if _, err := Decode(r); !errors.Is(err, ErrEndOfInput) {
		t.Fatalf("third Decode() error = %v, want ErrEndOfInput", err)
	}
}

func TestDecode_EmptyStreamIsEndOfInput(t *testing.T) {
	if _, err := Decode(bytes.NewReader(nil)); !errors.Is(err, ErrEndOfInput) {
		t.Fatalf("Decode() error = %v, want ErrEndOfInput", err)
	}
}

func TestDecode_TruncatedTailIsEndOfInput(t *testing.T) {
	data := Encode(LogEntry{Kind: KindSet, Key: "a", Value: "1"})

	for _, cut := range []int{1, 4, 5, 10, len(data) - 1} {
		r := bytes.NewReader(data[:cut])
		if _, err := Decode(r); !errors.Is(err, ErrEndOfInput) {
			t.Errorf("Decode() on %d-byte prefix error = %v, want ErrEndOfInput", cut, err)
		}
	}
}

func TestDecode_CorruptedCRCIsParseFailure(t *testing.T) {
	data := Encode(LogEntry{Kind: KindSet, Key: "a", Value: "1"})
	data[0] ^= 0xFF

	_, err := Decode(bytes.NewReader(data))
	if err == nil {
		t.Fatal("Decode() on corrupted CRC returned no error")
	}
	if errors.Is(err, ErrEndOfInput) {
		t.Fatal("Decode() on corrupted CRC should not be ErrEndOfInput")
	}
}

func TestDecode_InvalidKindIsParseFailure(t *testing.T) {
	data := Encode(LogEntry{Kind: KindSet, Key: "a", Value: "1"})
	data[4] = 7
	// recompute nothing: an invalid kind byte must be rejected before CRC
	// verification would even matter.
	_, err := Decode(bytes.NewReader(data))
	if err == nil {
		t.Fatal("Decode() on invalid kind byte returned no error")
	}
	if errors.Is(err, ErrEndOfInput) {
		t.Fatal("Decode() on invalid kind byte should not be ErrEndOfInput")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestDecode_UnderlyingReadErrorPropagates(t *testing.T) {
	_, err := Decode(errReader{})
	if err == nil || errors.Is(err, ErrEndOfInput) {
		t.Fatalf("Decode() error = %v, want a wrapped non-EOF error", err)
	}
}
