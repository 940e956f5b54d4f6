package quetzal

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	original := make([]byte, 64)
	for i := range original {
		original[i] = byte(i)
	}
	current := append([]byte(nil), original...)
	current[10] = 0xff
	current[40] = 0x01

	state := &SaveState{
		Release:  42,
		Serial:   [6]byte{'2', '5', '0', '1', '0', '1'},
		Checksum: 0x1234,
		PC:       0x4000,
		Frames: []Frame{
			{ReturnPC: 0x1000, HasStore: true, StoreVar: 5, ArgCount: 2, Locals: []uint16{1, 2, 3}, Eval: []uint16{10, 20}},
			{ReturnPC: 0, HasStore: false, ArgCount: 0},
		},
		DynamicMem:  current,
		OriginalMem: original,
	}

	data, err := Write(state)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(data, original)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Release != state.Release || got.Checksum != state.Checksum || got.PC != state.PC {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if string(got.Serial[:]) != string(state.Serial[:]) {
		t.Fatalf("serial mismatch: got %q", got.Serial)
	}
	if len(got.DynamicMem) != len(current) {
		t.Fatalf("dynamic mem length = %d, want %d", len(got.DynamicMem), len(current))
	}
	for i := range current {
		if got.DynamicMem[i] != current[i] {
			t.Fatalf("dynamic mem[%d] = %x, want %x", i, got.DynamicMem[i], current[i])
		}
	}

	if len(got.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(got.Frames))
	}
	if got.Frames[0].ReturnPC != 0x1000 || got.Frames[0].StoreVar != 5 {
		t.Fatalf("frame 0 = %+v", got.Frames[0])
	}
	if len(got.Frames[0].Locals) != 3 || len(got.Frames[0].Eval) != 2 {
		t.Fatalf("frame 0 locals/eval = %+v", got.Frames[0])
	}
}

func TestWritePrefersCMemWhenSmaller(t *testing.T) {
	original := make([]byte, 1024)
	current := append([]byte(nil), original...)
	current[5] = 1 // one byte differs; CMem should compress to far less than 1024 bytes

	data, err := Write(&SaveState{DynamicMem: current, OriginalMem: original})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(data) >= len(current) {
		t.Fatalf("expected compressed save to be much smaller than %d bytes, got %d", len(current), len(data))
	}
}

func TestReadRejectsNonIFFData(t *testing.T) {
	if _, err := Read([]byte("not an iff file"), nil); err == nil {
		t.Fatal("expected error reading non-IFF data")
	}
}
