// Package ir defines the SSA-form intermediate representation that sits
// between the frontend (frontend/irgen) and the optimizer/backend pipeline: SSA
// values and instructions, basic blocks, functions, and the program that
// owns them. See internal/cfg for control-flow/dominator/loop analyses over
// this IR, internal/midend and internal/loopopt for the optimization passes,
// and internal/isel/internal/regalloc/internal/emitter for the backend.
package ir

import "fmt"

// Type is the IR-level type of a Value: a 32-bit scalar, a pointer typed by
// its pointee, or void (only valid as a function return type / Call result
// type).
type Type interface {
	String() string
	isType()
}

type (
	I32Type  struct{}
	F32Type  struct{}
	VoidType struct{}

	// PointerType is typed by element; GEP/Load/Store all check agreement
	// against Elem.
	PointerType struct {
		Elem Type
	}
)

func (I32Type) isType()     {}
func (F32Type) isType()     {}
func (VoidType) isType()    {}
func (PointerType) isType() {}

func (I32Type) String() string  { return "i32" }
func (F32Type) String() string  { return "f32" }
func (VoidType) String() string { return "void" }
func (p PointerType) String() string {
	if p.Elem == nil {
		return "ptr"
	}
	return p.Elem.String() + "*"
}

// TypesEqual reports whether two types are structurally identical.
func TypesEqual(a, b Type) bool {
	switch av := a.(type) {
	case I32Type:
		_, ok := b.(I32Type)
		return ok
	case F32Type:
		_, ok := b.(F32Type)
		return ok
	case VoidType:
		_, ok := b.(VoidType)
		return ok
	case PointerType:
		bv, ok := b.(PointerType)
		return ok && TypesEqual(av.Elem, bv.Elem)
	default:
		return false
	}
}

// IsFloat / IsInt / IsPointer are convenience predicates used throughout
// instruction selection and the loop subsystem.
func IsFloat(t Type) bool {
	_, ok := t.(F32Type)
	return ok
}

func IsInt(t Type) bool {
	_, ok := t.(I32Type)
	return ok
}

func IsPointer(t Type) bool {
	_, ok := t.(PointerType)
	return ok
}

// Value is a polymorphic SSA operand: an integer literal (32-bit two's
// complement, wraps on overflow), a float literal (IEEE-754 binary32,
// bit-pattern preserving), or a named temporary.
type Value struct {
	Kind ValueKind

	// ConstInt / ConstFloat are valid when Kind == ValueConstInt/ValueConstFloat.
	ConstInt   int32
	ConstFloat float32

	// Temp fields, valid when Kind == ValueTemp.
	ID     int
	Name   string // e.g. "%t3" or "%x.4" -- cosmetic, used by the printer
	Type   Type
	Global bool // true for module-level temporaries (globals' addresses)
}

type ValueKind int

const (
	ValueTemp ValueKind = iota
	ValueConstInt
	ValueConstFloat
)

// ConstI32 builds an i32 literal value.
func ConstI32(v int32) *Value {
	return &Value{Kind: ValueConstInt, ConstInt: v, Type: I32Type{}}
}

// ConstF32 builds an f32 literal value.
func ConstF32(v float32) *Value {
	return &Value{Kind: ValueConstFloat, ConstFloat: v, Type: F32Type{}}
}

func (v *Value) IsConst() bool {
	return v.Kind == ValueConstInt || v.Kind == ValueConstFloat
}

func (v *Value) GetType() Type {
	return v.Type
}

func (v *Value) String() string {
	switch v.Kind {
	case ValueConstInt:
		return fmt.Sprintf("%d", v.ConstInt)
	case ValueConstFloat:
		return fmt.Sprintf("%g", v.ConstFloat)
	default:
		return v.Name
	}
}

// TempManager hands out fresh temporary identifiers. It is shared by the
// whole Program (and every pass that invents a name) so ids stay globally
// unique, per spec.md's concurrency/resource model.
type TempManager struct {
	nextID int
}

func NewTempManager() *TempManager {
	return &TempManager{}
}

// NewTemp allocates a fresh local temporary of the given type.
func (m *TempManager) NewTemp(t Type) *Value {
	m.nextID++
	return &Value{Kind: ValueTemp, ID: m.nextID, Name: fmt.Sprintf("%%t%d", m.nextID), Type: t}
}

// NewNamedTemp allocates a fresh temporary carrying a cosmetic name (for
// values derived from a source identifier, e.g. during alloc hoisting).
func (m *TempManager) NewNamedTemp(t Type, name string) *Value {
	m.nextID++
	return &Value{Kind: ValueTemp, ID: m.nextID, Name: fmt.Sprintf("%%%s.%d", name, m.nextID), Type: t}
}

// NewGlobalTemp allocates a fresh temporary marked as referring to module
// storage (the address of a global variable).
func (m *TempManager) NewGlobalTemp(t Type, name string) *Value {
	return &Value{Kind: ValueTemp, ID: -1, Name: "@" + name, Type: t, Global: true}
}
