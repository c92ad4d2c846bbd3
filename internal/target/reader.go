package target

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sgzwiz/oblc/internal/ir"
)

// Read parses the byte layout of §6.1 back into an *ir.Program. It is the
// inverse of Write, used by internal/linker to load a precompiled library
// file (§4.1 "Load protocol").
func Read(data []byte) (*ir.Program, error) {
	r := bytes.NewReader(data)
	prog := &ir.Program{}

	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported bytecode version %d", version)
	}

	magic, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	switch magic {
	case MagicExe:
		prog.Flavor = ir.FlavorExecutable
	case MagicLib:
		prog.Flavor = ir.FlavorLibrary
	case MagicWeb:
		prog.Flavor = ir.FlavorWeb
	default:
		return nil, fmt.Errorf("unrecognized magic number %#x", magic)
	}

	if prog.Flavor == ir.FlavorExecutable {
		id, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("reading string class id: %w", err)
		}
		prog.StringClassID = int(id)
	}

	if prog.FloatStrings, err = readFloatPool(r); err != nil {
		return nil, fmt.Errorf("reading float pool: %w", err)
	}
	if prog.IntStrings, err = readIntPool(r); err != nil {
		return nil, fmt.Errorf("reading int pool: %w", err)
	}
	if prog.CharStrings, err = readCharPool(r); err != nil {
		return nil, fmt.Errorf("reading char pool: %w", err)
	}

	if prog.Flavor == ir.FlavorLibrary {
		count, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("reading bundle name count: %w", err)
		}
		prog.BundleNames = make([]string, count)
		for i := range prog.BundleNames {
			if prog.BundleNames[i], err = readString(r); err != nil {
				return nil, fmt.Errorf("reading bundle name %d: %w", i, err)
			}
		}
	}

	if prog.Flavor == ir.FlavorExecutable {
		classID, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("reading entry class id: %w", err)
		}
		methodID, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("reading entry method id: %w", err)
		}
		prog.EntryClassID, prog.EntryMethodID = int(classID), int(methodID)
	}

	if prog.Enums, err = readEnums(r); err != nil {
		return nil, fmt.Errorf("reading enums: %w", err)
	}
	if prog.Classes, err = readClasses(r); err != nil {
		return nil, fmt.Errorf("reading classes: %w", err)
	}

	return prog, nil
}

func readFloatPool(r *bytes.Reader) ([]float64, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readIntPool(r *bytes.Reader) ([]int32, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		if out[i], err = readInt32(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readCharPool(r *bytes.Reader) ([]string, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		if out[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readEnums(r *bytes.Reader) ([]*ir.Enum, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]*ir.Enum, count)
	for i := range out {
		e := &ir.Enum{}
		if e.Name, err = readString(r); err != nil {
			return nil, err
		}
		offset, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		e.Offset = int(offset)
		itemCount, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		e.Items = make([]ir.EnumItem, itemCount)
		for j := range e.Items {
			if e.Items[j].Name, err = readString(r); err != nil {
				return nil, err
			}
			id, err := readInt32(r)
			if err != nil {
				return nil, err
			}
			e.Items[j].ID = int(id)
		}
		out[i] = e
	}
	return out, nil
}

func readClasses(r *bytes.Reader) ([]*ir.Class, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]*ir.Class, count)
	for i := range out {
		c, err := readClass(r)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func readClass(r *bytes.Reader) (*ir.Class, error) {
	c := &ir.Class{}
	var err error

	id, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	c.ID = int(id)
	if c.Name, err = readString(r); err != nil {
		return nil, err
	}
	parentID, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	c.ParentID = int(parentID)
	if c.ParentName, err = readString(r); err != nil {
		return nil, err
	}

	ifaceIDCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	c.InterfaceIDs = make([]int, ifaceIDCount)
	for i := range c.InterfaceIDs {
		v, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		c.InterfaceIDs[i] = int(v)
	}

	ifaceNameCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	c.InterfaceNames = make([]string, ifaceNameCount)
	for i := range c.InterfaceNames {
		if c.InterfaceNames[i], err = readString(r); err != nil {
			return nil, err
		}
	}

	var flags uint8
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, err
	}
	c.IsInterface = flags&1 != 0
	c.IsVirtual = flags&2 != 0
	c.IsDebug = flags&4 != 0
	if c.IsDebug {
		if c.SourceFile, err = readString(r); err != nil {
			return nil, err
		}
	}

	classSpace, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	c.ClassSpaceSize = int(classSpace)
	instSpace, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	c.InstanceSpaceSize = int(instSpace)

	if c.ClassFields, err = readFields(r, c.IsDebug); err != nil {
		return nil, err
	}
	if c.InstanceFields, err = readFields(r, c.IsDebug); err != nil {
		return nil, err
	}

	methodCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	c.Methods = make([]*ir.Method, methodCount)
	for i := range c.Methods {
		if c.Methods[i], err = readMethod(r, c.IsDebug); err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
	}
	return c, nil
}

func readFields(r *bytes.Reader, debug bool) ([]ir.Field, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Field, count)
	for i := range out {
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, err
		}
		out[i].Kind = ir.ParamKind(kind)
		if debug {
			if out[i].Name, err = readString(r); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func readMethod(r *bytes.Reader, debug bool) (*ir.Method, error) {
	m := &ir.Method{}
	var err error

	id, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	m.ID = int(id)

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, err
	}
	m.Kind = int(kind)

	if m.IsStatic, err = readBool(r); err != nil {
		return nil, err
	}
	if m.IsVirtual, err = readBool(r); err != nil {
		return nil, err
	}
	if m.HasAndOr, err = readBool(r); err != nil {
		return nil, err
	}
	if m.IsNative, err = readBool(r); err != nil {
		return nil, err
	}
	if m.IsFunction, err = readBool(r); err != nil {
		return nil, err
	}
	if m.EncodedName, err = readString(r); err != nil {
		return nil, err
	}
	m.Name = m.EncodedName
	if m.EncodedReturn, err = readString(r); err != nil {
		return nil, err
	}
	paramCount, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	m.ParamCount = int(paramCount)
	frameSize, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	m.FrameSize = int(frameSize)

	fields, err := readFields(r, debug)
	if err != nil {
		return nil, err
	}
	m.Declarations = make([]ir.Declaration, len(fields))
	for i, f := range fields {
		m.Declarations[i] = ir.Declaration{Kind: f.Kind, Name: f.Name}
	}

	for {
		var op uint8
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, err
		}
		if ir.Opcode(op) == ir.OpEndStmts {
			break
		}
		inst, err := readInstruction(r, ir.Opcode(op), debug)
		if err != nil {
			return nil, err
		}
		m.Instructions = append(m.Instructions, inst)
	}
	return m, nil
}

func readInstruction(r *bytes.Reader, op ir.Opcode, debug bool) (ir.Instruction, error) {
	inst := ir.Instruction{Op: op}
	var err error
	if debug {
		line, err := readInt32(r)
		if err != nil {
			return inst, err
		}
		inst.Line = int(line)
	}
	if inst.IntOp1, err = readInt32(r); err != nil {
		return inst, err
	}
	if inst.IntOp2, err = readInt32(r); err != nil {
		return inst, err
	}
	if inst.IntOp3, err = readInt32(r); err != nil {
		return inst, err
	}
	if err := binary.Read(r, binary.LittleEndian, &inst.FloatOp); err != nil {
		return inst, err
	}
	if inst.StrOp1, err = readString(r); err != nil {
		return inst, err
	}
	if inst.StrOp2, err = readString(r); err != nil {
		return inst, err
	}
	return inst, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt32(r *bytes.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readBool(r *bytes.Reader) (bool, error) {
	var b uint8
	if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
		return false, err
	}
	return b != 0, nil
}

func readString(r *bytes.Reader) (string, error) {
	length, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}
