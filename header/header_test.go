package header

import (
	"bytes"
	"testing"
)

func TestContainerRoundTripFloat64(t *testing.T) {
	c := New(256)

	if err := c.SetFloat64(ColUNCRadOfRotationID, 42.5); err != nil {
		t.Fatalf("SetFloat64: %v", err)
	}

	got, err := c.GetFloat64(ColUNCRadOfRotationID)
	if err != nil {
		t.Fatalf("GetFloat64: %v", err)
	}
	if got != 42.5 {
		t.Fatalf("got %v want 42.5", got)
	}
}

func TestContainerRoundTripUint32(t *testing.T) {
	c := New(256)

	if err := c.SetUint32(PhgHeaderSizeID, 9001); err != nil {
		t.Fatalf("SetUint32: %v", err)
	}
	got, err := c.GetUint32(PhgHeaderSizeID)
	if err != nil {
		t.Fatalf("GetUint32: %v", err)
	}
	if got != 9001 {
		t.Fatalf("got %v want 9001", got)
	}
}

func TestContainerRoundTripBool(t *testing.T) {
	c := New(256)

	if err := c.SetBool(PhgIsSPECTID, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	got, err := c.GetBool(PhgIsSPECTID)
	if err != nil {
		t.Fatalf("GetBool: %v", err)
	}
	if !got {
		t.Fatalf("got false want true")
	}
}

// Mirrors the spec's missing-field scenario: a header that only ever had
// HDR_PHG_HEADER_SIZE_ID written to it still answers a read of a field
// introduced later (HDR_DET_COINC_TIMING_WINDOW_ID) with ElementNotFound,
// which the caller maps to the registry's default.
func TestMissingFieldFallsBackToDefault(t *testing.T) {
	c := New(256)
	if err := c.SetUint32(PhgHeaderSizeID, 256); err != nil {
		t.Fatalf("SetUint32: %v", err)
	}

	_, err := c.GetFloat64(DetCoincTimingWindowID)
	if err != ErrElementNotFound {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}

	got, err := c.GetFloat64WithDefault(DetCoincTimingWindowID)
	if err != nil {
		t.Fatalf("GetFloat64WithDefault: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected default 0, got %v", got)
	}
}

func TestSizeMismatchRejected(t *testing.T) {
	c := New(256)
	if err := c.SetFloat64(PhgLengthOfScanID, 10); err != nil {
		t.Fatalf("SetFloat64: %v", err)
	}
	if _, err := c.GetUint32(PhgLengthOfScanID); err != ErrSizeMismatch {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestHeaderFullOnAppend(t *testing.T) {
	c := New(16) // room for exactly one (id,size,float64) triple and no terminator
	if err := c.SetFloat64(PhgLengthOfScanID, 1); err != nil {
		t.Fatalf("first SetFloat64: %v", err)
	}
	if err := c.SetFloat64(PhgMinEnergyID, 2); err != ErrHeaderFull {
		t.Fatalf("expected ErrHeaderFull, got %v", err)
	}
}

func TestWriteToRoundTrip(t *testing.T) {
	c := New(64)
	if err := c.SetUint32(PhgHeaderSizeID, 64); err != nil {
		t.Fatalf("SetUint32: %v", err)
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	reopened, err := Open(&buf, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := reopened.GetUint32(PhgHeaderSizeID)
	if err != nil {
		t.Fatalf("GetUint32 after reopen: %v", err)
	}
	if got != 64 {
		t.Fatalf("got %v want 64", got)
	}
}

func TestFieldsListsEveryStoredIDInOrder(t *testing.T) {
	c := New(64)
	if err := c.SetUint32(PhgHeaderSizeID, 64); err != nil {
		t.Fatalf("SetUint32: %v", err)
	}
	if err := c.SetFloat64(PhgMinEnergyID, 140.5); err != nil {
		t.Fatalf("SetFloat64: %v", err)
	}

	ids := c.Fields()
	if len(ids) != 2 {
		t.Fatalf("got %d fields, want 2", len(ids))
	}
	if ids[0] != PhgHeaderSizeID || ids[1] != PhgMinEnergyID {
		t.Fatalf("got %v, want [%v %v]", ids, PhgHeaderSizeID, PhgMinEnergyID)
	}
}

func TestFieldsEmptyContainerReturnsNil(t *testing.T) {
	c := New(64)
	if ids := c.Fields(); len(ids) != 0 {
		t.Fatalf("got %v, want empty", ids)
	}
}

func TestDumpWritesOneLinePerField(t *testing.T) {
	c := New(64)
	if err := c.SetUint32(PhgHeaderSizeID, 64); err != nil {
		t.Fatalf("SetUint32: %v", err)
	}
	if err := c.SetFloat64(PhgMinEnergyID, 140.5); err != nil {
		t.Fatalf("SetFloat64: %v", err)
	}
	if err := c.SetBool(PhgIsSPECTID, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"HeaderSize (id=1): 64", "MinEnergy (id=6): 140.5", "IsSPECT (id=14): true"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("dump output %q missing %q", out, want)
		}
	}
}

func TestDumpEmptyContainerWritesNothing(t *testing.T) {
	c := New(64)
	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("got %q, want empty", buf.String())
	}
}
