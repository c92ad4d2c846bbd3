package emit

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
)

// emitClass lowers one program class to its intermediate form: id table
// entries for its parent/interfaces, its field layout, and every method
// (§4.4 "Class/method id assignment", "Per-method emission").
func (e *Emitter) emitClass(c *ast.Class) (*ir.Class, error) {
	ic := &ir.Class{
		ID:             c.ID,
		Name:           c.Name,
		ParentID:       -1,
		ParentName:     c.ParentName,
		InterfaceNames: c.InterfaceNames,
		IsInterface:    c.IsInterface,
		IsVirtual:      c.IsVirtual,
		IsDebug:        e.Debug,
		SourceFile:     c.File,
	}

	if parent := c.RefParent(); parent != nil {
		ic.ParentID = e.idOf(parent)
	}
	for _, iface := range c.InterfacesProgram {
		ic.InterfaceIDs = append(ic.InterfaceIDs, e.idOf(iface))
	}
	for _, iface := range c.InterfacesLibrary {
		ic.InterfaceIDs = append(ic.InterfaceIDs, e.idOf(iface))
	}

	for _, f := range c.Fields {
		field := ir.Field{Kind: paramKindOf(f.Type), Name: f.Name}
		width := slotWidth(f.Type)
		if f.Static {
			ic.ClassFields = append(ic.ClassFields, field)
			ic.ClassSpaceSize += width
		} else {
			ic.InstanceFields = append(ic.InstanceFields, field)
			ic.InstanceSpaceSize += width
		}
	}

	for _, m := range c.Methods {
		if m.Statements == nil && m.Virtual {
			continue // virtual/interface declarations carry no body to emit
		}
		im, err := e.emitMethod(c, m)
		if err != nil {
			return nil, err
		}
		ic.Methods = append(ic.Methods, im)
	}

	return ic, nil
}
