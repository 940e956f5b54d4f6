package zobject

import (
	"testing"

	"github.com/skeptomai/gruesome/internal/zcore"
)

// buildV3Story lays out a v3 story with a 31-entry property-defaults table
// at 0x40, three objects starting right after it, and each object's
// property table (short name + terminator) placed in high memory.
func buildV3Story(t *testing.T) (*zcore.Memory, *Tree) {
	t.Helper()
	buf := make([]byte, 512)
	buf[0x00] = 3
	buf[0x0e], buf[0x0f] = 0x00, 0xf0
	buf[0x04], buf[0x05] = 0x00, 0xf0
	buf[0x06], buf[0x07] = 0x00, 0x40
	buf[0x08], buf[0x09] = 0x00, 0x20
	buf[0x0a], buf[0x0b] = 0x00, 0x40 // object table base
	buf[0x0c], buf[0x0d] = 0x00, 0x08

	objBase := uint32(0x40)
	recordsStart := objBase + 2*31 // past property defaults

	// Object 1: no parent/sibling/child, property table at 0x100 (empty name).
	rec1 := recordsStart
	buf[0x100] = 0 // name length 0
	buf[0x101] = 0 // property list terminator
	buf[rec1+7], buf[rec1+8] = 0x01, 0x00 // property pointer = 0x0100

	// Object 2: parent=0, will become a child of object 1 via Insert.
	rec2 := recordsStart + 9
	buf[0x110] = 0
	buf[0x111] = 0
	buf[rec2+7], buf[rec2+8] = 0x01, 0x10

	mem, err := zcore.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tree := New(mem, objBase, 3, 0)
	return mem, tree
}

func TestGetObjectZeroIsError(t *testing.T) {
	_, tree := buildV3Story(t)
	if _, err := tree.Get(0); err == nil {
		t.Fatal("expected an error getting object 0")
	}
}

func TestAttributeSetClearTest(t *testing.T) {
	_, tree := buildV3Story(t)
	obj, err := tree.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if obj.TestAttribute(3) {
		t.Fatal("attribute 3 should start clear")
	}
	obj.SetAttribute(3)
	if !obj.TestAttribute(3) {
		t.Fatal("attribute 3 should be set")
	}
	obj.ClearAttribute(3)
	if obj.TestAttribute(3) {
		t.Fatal("attribute 3 should be clear again")
	}
}

func TestInsertAndRemove(t *testing.T) {
	_, tree := buildV3Story(t)

	if err := tree.Insert(2, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	parent, err := tree.Get(1)
	if err != nil {
		t.Fatalf("Get parent: %v", err)
	}
	if parent.Child != 2 {
		t.Fatalf("parent.Child = %d, want 2", parent.Child)
	}
	child, err := tree.Get(2)
	if err != nil {
		t.Fatalf("Get child: %v", err)
	}
	if child.Parent != 1 {
		t.Fatalf("child.Parent = %d, want 1", child.Parent)
	}

	if err := tree.Remove(2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	parent, _ = tree.Get(1)
	if parent.Child != 0 {
		t.Fatalf("parent.Child after remove = %d, want 0", parent.Child)
	}
	child, _ = tree.Get(2)
	if child.Parent != 0 {
		t.Fatalf("child.Parent after remove = %d, want 0", child.Parent)
	}
}
