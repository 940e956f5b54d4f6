package zobject

import "fmt"

// Property is a decoded property-table entry: its number, the address and
// length of its data, and the address of the size byte(s) preceding it.
type Property struct {
	Number      uint8
	Data        []byte
	DataAddr    uint32
	headerLen   uint32
	sizeByteLen uint8
}

// propertiesStart is the address of the first property-size byte,
// immediately after the object's short name.
func (o *Object) propertiesStart() uint32 {
	nameLen := uint32(o.tree.mem.ReadByte(o.PropertyPointer))
	return o.PropertyPointer + 1 + nameLen*2
}

// decodePropertyAt decodes the property-size byte(s) at addr (spec §3: v3
// uses `size = 32*(len-1) + prop`; v4 uses a one- or two-byte form).
func (t *Tree) decodePropertyAt(addr uint32) Property {
	sizeByte := t.mem.ReadByte(addr)

	if t.version <= 3 {
		return Property{
			Number:    sizeByte & 0b11111,
			headerLen: 1,
			DataAddr:  addr + 1,
			Data:      t.mem.Slice(addr+1, addr+1+uint32(sizeByte>>5)+1),
		}
	}

	if sizeByte&0x80 != 0 {
		lenByte := t.mem.ReadByte(addr + 1)
		length := lenByte & 0b11_1111
		if length == 0 {
			length = 64
		}
		return Property{
			Number:    sizeByte & 0b11_1111,
			headerLen: 2,
			DataAddr:  addr + 2,
			Data:      t.mem.Slice(addr+2, addr+2+uint32(length)),
		}
	}

	length := uint8(1)
	if sizeByte&0x40 != 0 {
		length = 2
	}
	return Property{
		Number:    sizeByte & 0b11_1111,
		headerLen: 1,
		DataAddr:  addr + 1,
		Data:      t.mem.Slice(addr+1, addr+1+uint32(length)),
	}
}

// propertyAddrFor walks the descending-order property list looking for
// number, returning its decoded Property and the address of its size
// byte(s), or ok=false if absent (spec invariant: "strictly descending by
// property number").
func (o *Object) propertyAddrFor(number uint8) (Property, uint32, bool) {
	addr := o.propertiesStart()
	for {
		sizeByte := o.tree.mem.ReadByte(addr)
		if sizeByte == 0 {
			return Property{}, 0, false
		}

		prop := o.tree.decodePropertyAt(addr)
		if prop.Number == number {
			return prop, addr, true
		}
		if prop.Number < number {
			return Property{}, 0, false
		}
		addr = prop.DataAddr + uint32(len(prop.Data))
	}
}

// defaultValue returns the property-defaults table entry for number
// (1-based; spec §3 "default values for absent properties come from the
// property-defaults table").
func (t *Tree) defaultValue(number uint8) []byte {
	addr := t.base + 2*uint32(number-1)
	return t.mem.Slice(addr, addr+2)
}

// GetProperty returns the property or, if absent, a synthetic Property
// backed by the object table's default value (spec §4.4: "get_prop returns
// default if property absent").
func (o *Object) GetProperty(number uint8) Property {
	if prop, _, ok := o.propertyAddrFor(number); ok {
		return prop
	}
	return Property{Number: number, Data: o.tree.defaultValue(number)}
}

// GetPropertyAddr returns the byte address of a present property's data, or
// 0 if absent (get_prop_addr).
func (o *Object) GetPropertyAddr(number uint8) uint32 {
	if prop, _, ok := o.propertyAddrFor(number); ok {
		return prop.DataAddr
	}
	return 0
}

// GetPropertyLen, given the address of a property's data (as returned by
// get_prop_addr), recovers the property length by reading the size byte(s)
// immediately before it (spec §4.1, get_prop_len). Address 0 is the
// official spec's "no property" special case and returns 0.
func (t *Tree) GetPropertyLen(dataAddr uint32) uint8 {
	if dataAddr == 0 {
		return 0
	}
	prevByte := t.mem.ReadByte(dataAddr - 1)
	if t.version <= 3 {
		return (prevByte >> 5) + 1
	}
	if prevByte&0x80 != 0 {
		length := prevByte & 0b11_1111
		if length == 0 {
			return 64
		}
		return length
	}
	if prevByte&0x40 != 0 {
		return 2
	}
	return 1
}

// GetNextProperty implements get_next_prop: 0 means "first property" (the
// largest number); otherwise the property immediately following number in
// the descending list, or 0 if number was last (spec testable property 7).
func (o *Object) GetNextProperty(number uint8) (uint8, error) {
	if number == 0 {
		addr := o.propertiesStart()
		if o.tree.mem.ReadByte(addr) == 0 {
			return 0, nil
		}
		return o.tree.decodePropertyAt(addr).Number, nil
	}

	prop, addr, ok := o.propertyAddrFor(number)
	if !ok {
		return 0, fmt.Errorf("zobject: property %d not present on object %d", number, o.Id)
	}
	next := addr + uint32(prop.headerLen) + uint32(len(prop.Data))
	if o.tree.mem.ReadByte(next) == 0 {
		return 0, nil
	}
	return o.tree.decodePropertyAt(next).Number, nil
}

// SetProperty overwrites a present 1- or 2-byte property's value (put_prop;
// spec §4.4: "put_prop [has the] same limitation" as get_prop — only 1- and
// 2-byte properties).
func (o *Object) SetProperty(number uint8, value uint16) error {
	prop, _, ok := o.propertyAddrFor(number)
	if !ok {
		return fmt.Errorf("zobject: put_prop on absent property %d of object %d", number, o.Id)
	}

	switch len(prop.Data) {
	case 1:
		return o.tree.mem.WriteByte(prop.DataAddr, uint8(value))
	case 2:
		return o.tree.mem.WriteWord(prop.DataAddr, value)
	default:
		return fmt.Errorf("zobject: put_prop on property %d (len %d) of object %d exceeds 2 bytes", number, len(prop.Data), o.Id)
	}
}
