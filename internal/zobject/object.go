// Package zobject implements the Z-Machine object tree: attribute bits,
// parent/sibling/child links, and the property table protocol (spec.md §3,
// §4.4).
package zobject

import (
	"fmt"

	"github.com/skeptomai/gruesome/internal/zcore"
	"github.com/skeptomai/gruesome/internal/zstring"
)

// Tree wraps the object table for one loaded story: its base address and
// version-dependent record layout.
type Tree struct {
	mem       *zcore.Memory
	base      uint32
	version   uint8
	abbrBase  uint16
	recordLen uint32 // 9 (v3) or 14 (v4)
	defaults  uint32 // number of property-default entries: 31 (v3) or 63 (v4)
}

// New builds a Tree over the object table at baseAddr.
func New(mem *zcore.Memory, baseAddr uint32, version uint8, abbrBase uint16) *Tree {
	t := &Tree{mem: mem, base: baseAddr, version: version, abbrBase: abbrBase}
	if version >= 4 {
		t.recordLen = 14
		t.defaults = 63
	} else {
		t.recordLen = 9
		t.defaults = 31
	}
	return t
}

// objectBase returns the address of object record id; record 1 starts one
// past the property-defaults table.
func (t *Tree) objectBase(id uint16) uint32 {
	return t.base + 2*t.defaults + uint32(id-1)*t.recordLen
}

// Object is a decoded view onto one object table record. Parent/Sibling/
// Child and the attribute bits are read fresh on Get and written back
// to memory by the mutator methods.
type Object struct {
	tree    *Tree
	Id      uint16
	addr    uint32
	propPtr uint32

	Attributes      [6]byte // only [0:4] valid in v3
	Parent          uint16
	Sibling         uint16
	Child           uint16
	PropertyPointer uint32
}

// Get loads the object record for id. Object 0 is rejected with an error
// (spec §7 InvalidObject); no upper bound on id is checked, so a too-large
// id reads whatever bytes lie at the computed record address. The caller
// decides whether to log-and-no-op per the official spec's "operations on
// object 0 are undefined" guidance.
func (t *Tree) Get(id uint16) (*Object, error) {
	if id == 0 {
		return nil, fmt.Errorf("zobject: object 0 is not a valid object")
	}

	addr := t.objectBase(id)
	o := &Object{tree: t, Id: id, addr: addr}

	if t.version >= 4 {
		for i := 0; i < 6; i++ {
			o.Attributes[i] = t.mem.ReadByte(addr + uint32(i))
		}
		o.Parent = t.mem.ReadWord(addr + 6)
		o.Sibling = t.mem.ReadWord(addr + 8)
		o.Child = t.mem.ReadWord(addr + 10)
		o.PropertyPointer = uint32(t.mem.ReadWord(addr + 12))
	} else {
		for i := 0; i < 4; i++ {
			o.Attributes[i] = t.mem.ReadByte(addr + uint32(i))
		}
		o.Parent = uint16(t.mem.ReadByte(addr + 4))
		o.Sibling = uint16(t.mem.ReadByte(addr + 5))
		o.Child = uint16(t.mem.ReadByte(addr + 6))
		o.PropertyPointer = uint32(t.mem.ReadWord(addr + 7))
	}

	return o, nil
}

// Name decodes the object's short name (spec §3: "a text-length byte then
// a ZSCII-encoded short name").
func (o *Object) Name() string {
	nameLen := o.tree.mem.ReadByte(o.PropertyPointer)
	if nameLen == 0 {
		return ""
	}
	text, _ := zstring.Decode(o.tree.mem, o.PropertyPointer+1, o.tree.abbrBase)
	return text
}

func attrByteBit(attribute uint16) (byteIx uint32, mask uint8) {
	return uint32(attribute / 8), 0x80 >> (attribute % 8)
}

// TestAttribute reports whether attribute bit n is set. v3 has 32
// attributes (0-31), v4 has 48 (0-47); callers are expected to stay in
// range for the loaded version.
func (o *Object) TestAttribute(attribute uint16) bool {
	byteIx, mask := attrByteBit(attribute)
	return o.Attributes[byteIx]&mask != 0
}

func (o *Object) setAttributeBit(attribute uint16, value bool) {
	byteIx, mask := attrByteBit(attribute)
	if value {
		o.Attributes[byteIx] |= mask
	} else {
		o.Attributes[byteIx] &^= mask
	}
	o.tree.mem.WriteByte(o.addr+byteIx, o.Attributes[byteIx])
}

// SetAttribute sets attribute bit n.
func (o *Object) SetAttribute(attribute uint16) { o.setAttributeBit(attribute, true) }

// ClearAttribute clears attribute bit n.
func (o *Object) ClearAttribute(attribute uint16) { o.setAttributeBit(attribute, false) }

func (o *Object) writeParent(v uint16) {
	o.Parent = v
	if o.tree.version >= 4 {
		o.tree.mem.WriteWord(o.addr+6, v)
	} else {
		o.tree.mem.WriteByte(o.addr+4, uint8(v))
	}
}

func (o *Object) writeSibling(v uint16) {
	o.Sibling = v
	if o.tree.version >= 4 {
		o.tree.mem.WriteWord(o.addr+8, v)
	} else {
		o.tree.mem.WriteByte(o.addr+5, uint8(v))
	}
}

func (o *Object) writeChild(v uint16) {
	o.Child = v
	if o.tree.version >= 4 {
		o.tree.mem.WriteWord(o.addr+10, v)
	} else {
		o.tree.mem.WriteByte(o.addr+6, uint8(v))
	}
}

// Remove detaches obj from its parent's sibling chain and clears its
// parent/sibling links (spec testable property 6, the remove_obj opcode).
func (t *Tree) Remove(id uint16) error {
	obj, err := t.Get(id)
	if err != nil {
		return err
	}
	if obj.Parent == 0 {
		return nil
	}

	parent, err := t.Get(obj.Parent)
	if err != nil {
		return err
	}

	if parent.Child == obj.Id {
		parent.writeChild(obj.Sibling)
	} else {
		curId := parent.Child
		for curId != 0 {
			cur, err := t.Get(curId)
			if err != nil {
				return err
			}
			if cur.Sibling == obj.Id {
				cur.writeSibling(obj.Sibling)
				break
			}
			curId = cur.Sibling
		}
	}

	obj.writeParent(0)
	obj.writeSibling(0)
	return nil
}

// Insert moves obj to become the first child of parent (insert_obj; spec
// §4.4, testable property 6). It detaches obj from any current parent
// first.
func (t *Tree) Insert(id, parentId uint16) error {
	obj, err := t.Get(id)
	if err != nil {
		return err
	}

	if err := t.Remove(id); err != nil {
		return err
	}

	parent, err := t.Get(parentId)
	if err != nil {
		return err
	}

	obj.writeSibling(parent.Child)
	obj.writeParent(parentId)
	parent.writeChild(id)
	return nil
}
