// Package target implements the binary bytecode file writer and reader of
// spec.md §6.1. The writer is the "target writer" component (§4.5); the
// reader is used by internal/linker to reconstruct a library's class/method/
// enum tables from a previously written file (§4.1).
package target

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/maruel/natural"

	"github.com/sgzwiz/oblc/internal/ir"
)

// Write serializes prog to the byte layout of §6.1 and returns the bytes.
func Write(prog *ir.Program) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := writeHeader(buf, prog); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := writeFloatPool(buf, prog.FloatStrings); err != nil {
		return nil, fmt.Errorf("writing float pool: %w", err)
	}
	if err := writeIntPool(buf, prog.IntStrings); err != nil {
		return nil, fmt.Errorf("writing int pool: %w", err)
	}
	if err := writeCharPool(buf, prog.CharStrings); err != nil {
		return nil, fmt.Errorf("writing char pool: %w", err)
	}

	if prog.Flavor == ir.FlavorLibrary {
		names := append([]string(nil), prog.BundleNames...)
		sort.Slice(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })
		if err := writeUint32(buf, uint32(len(names))); err != nil {
			return nil, err
		}
		for _, n := range names {
			if err := writeString(buf, n); err != nil {
				return nil, fmt.Errorf("writing bundle name %q: %w", n, err)
			}
		}
	}

	if prog.Flavor == ir.FlavorExecutable {
		if err := writeInt32(buf, int32(prog.EntryClassID)); err != nil {
			return nil, err
		}
		if err := writeInt32(buf, int32(prog.EntryMethodID)); err != nil {
			return nil, err
		}
	}

	if err := writeEnums(buf, prog.Enums); err != nil {
		return nil, fmt.Errorf("writing enums: %w", err)
	}
	if err := writeClasses(buf, prog.Classes, prog.Debug); err != nil {
		return nil, fmt.Errorf("writing classes: %w", err)
	}

	return buf.Bytes(), nil
}

func writeHeader(w *bytes.Buffer, prog *ir.Program) error {
	if err := writeUint32(w, FormatVersion); err != nil {
		return err
	}
	magic := MagicExe
	switch prog.Flavor {
	case ir.FlavorLibrary:
		magic = MagicLib
	case ir.FlavorWeb:
		magic = MagicWeb
	}
	if err := writeUint32(w, magic); err != nil {
		return err
	}
	if prog.Flavor == ir.FlavorExecutable {
		return writeInt32(w, int32(prog.StringClassID))
	}
	return nil
}

func writeFloatPool(w *bytes.Buffer, pool []float64) error {
	if err := writeUint32(w, uint32(len(pool))); err != nil {
		return err
	}
	for _, v := range pool {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func writeIntPool(w *bytes.Buffer, pool []int32) error {
	if err := writeUint32(w, uint32(len(pool))); err != nil {
		return err
	}
	for _, v := range pool {
		if err := writeInt32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeCharPool(w *bytes.Buffer, pool []string) error {
	if err := writeUint32(w, uint32(len(pool))); err != nil {
		return err
	}
	for _, s := range pool {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeEnums(w *bytes.Buffer, enums []*ir.Enum) error {
	if err := writeUint32(w, uint32(len(enums))); err != nil {
		return err
	}
	for _, e := range enums {
		if err := writeString(w, e.Name); err != nil {
			return err
		}
		if err := writeInt32(w, int32(e.Offset)); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(e.Items))); err != nil {
			return err
		}
		for _, it := range e.Items {
			if err := writeString(w, it.Name); err != nil {
				return err
			}
			if err := writeInt32(w, int32(it.ID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeClasses(w *bytes.Buffer, classes []*ir.Class, debug bool) error {
	if err := writeUint32(w, uint32(len(classes))); err != nil {
		return err
	}
	for _, c := range classes {
		if err := writeClass(w, c, debug); err != nil {
			return fmt.Errorf("class %q: %w", c.Name, err)
		}
	}
	return nil
}

func writeClass(w *bytes.Buffer, c *ir.Class, debug bool) error {
	if err := writeInt32(w, int32(c.ID)); err != nil {
		return err
	}
	if err := writeString(w, c.Name); err != nil {
		return err
	}
	if err := writeInt32(w, int32(c.ParentID)); err != nil {
		return err
	}
	if err := writeString(w, c.ParentName); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(c.InterfaceIDs))); err != nil {
		return err
	}
	for _, id := range c.InterfaceIDs {
		if err := writeInt32(w, int32(id)); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(c.InterfaceNames))); err != nil {
		return err
	}
	for _, n := range c.InterfaceNames {
		if err := writeString(w, n); err != nil {
			return err
		}
	}

	var flags uint8
	if c.IsInterface {
		flags |= 1
	}
	if c.IsVirtual {
		flags |= 2
	}
	if debug {
		flags |= 4
	}
	if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
		return err
	}
	if debug {
		if err := writeString(w, c.SourceFile); err != nil {
			return err
		}
	}

	if err := writeInt32(w, int32(c.ClassSpaceSize)); err != nil {
		return err
	}
	if err := writeInt32(w, int32(c.InstanceSpaceSize)); err != nil {
		return err
	}

	if err := writeFields(w, c.ClassFields, debug); err != nil {
		return err
	}
	if err := writeFields(w, c.InstanceFields, debug); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(c.Methods))); err != nil {
		return err
	}
	for _, m := range c.Methods {
		if err := writeMethod(w, m, debug); err != nil {
			return fmt.Errorf("method %q: %w", m.Name, err)
		}
	}
	return nil
}

func writeFields(w *bytes.Buffer, fields []ir.Field, debug bool) error {
	if err := writeUint32(w, uint32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, uint8(f.Kind)); err != nil {
			return err
		}
		if debug {
			if err := writeString(w, f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// frameOverflowError formats the fatal diagnostic of §4.4 step 2 using
// go-humanize so oversized frames report in human-readable byte counts
// rather than raw integers.
func frameOverflowError(methodName string, size, budget int) error {
	return fmt.Errorf("method %s needs a %s local frame, exceeding the %s budget",
		methodName, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(budget)))
}

func writeMethod(w *bytes.Buffer, m *ir.Method, debug bool) error {
	if m.FrameSize > ir.DefaultFrameBudget {
		return frameOverflowError(m.Name, m.FrameSize, ir.DefaultFrameBudget)
	}
	if err := writeInt32(w, int32(m.ID)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(m.Kind)); err != nil {
		return err
	}
	if err := writeBool(w, m.IsStatic); err != nil {
		return err
	}
	if err := writeBool(w, m.IsVirtual); err != nil {
		return err
	}
	if err := writeBool(w, m.HasAndOr); err != nil {
		return err
	}
	if err := writeBool(w, m.IsNative); err != nil {
		return err
	}
	if err := writeBool(w, m.IsFunction); err != nil {
		return err
	}
	if err := writeString(w, m.EncodedName); err != nil {
		return err
	}
	if err := writeString(w, m.EncodedReturn); err != nil {
		return err
	}
	if err := writeInt32(w, int32(m.ParamCount)); err != nil {
		return err
	}
	if err := writeInt32(w, int32(m.FrameSize)); err != nil {
		return err
	}
	if err := writeFields(w, declsToFields(m.Declarations), debug); err != nil {
		return err
	}
	for _, inst := range m.Instructions {
		if err := writeInstruction(w, inst, debug); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, uint8(ir.OpEndStmts))
}

func declsToFields(decls []ir.Declaration) []ir.Field {
	out := make([]ir.Field, len(decls))
	for i, d := range decls {
		out[i] = ir.Field{Kind: d.Kind, Name: d.Name}
	}
	return out
}

func writeInstruction(w *bytes.Buffer, inst ir.Instruction, debug bool) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(inst.Op)); err != nil {
		return err
	}
	if debug {
		if err := writeInt32(w, int32(inst.Line)); err != nil {
			return err
		}
	}
	if err := writeInt32(w, inst.IntOp1); err != nil {
		return err
	}
	if err := writeInt32(w, inst.IntOp2); err != nil {
		return err
	}
	if err := writeInt32(w, inst.IntOp3); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, inst.FloatOp); err != nil {
		return err
	}
	if err := writeString(w, inst.StrOp1); err != nil {
		return err
	}
	return writeString(w, inst.StrOp2)
}

func writeUint32(w *bytes.Buffer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeInt32(w *bytes.Buffer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeBool(w *bytes.Buffer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return binary.Write(w, binary.LittleEndian, b)
}

func writeString(w *bytes.Buffer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}
