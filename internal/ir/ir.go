// Package ir is the intermediate program model of spec.md §4.4: the linear
// stream of stack-machine instructions the emitter produces from a decorated
// parse tree, and that the target writer later serializes (§6.1) or the
// linker re-parses back out of a library file (§4.1).
package ir

// Opcode is one bytecode instruction tag. The numeric values are part of the
// on-disk format (§6.1) and must never be renumbered once written.
type Opcode uint8

const (
	OpNop Opcode = iota

	OpLoadInt
	OpLoadFloat
	OpLoadString // int-pool or char-pool index, disambiguated by operand slot
	OpLoadVar
	OpStoreVar

	OpLoadArrayElem
	OpStoreArrayElem
	OpNewArray

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpNot
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte

	OpIntToFloat
	OpFloatToInt

	OpJump
	OpJumpFalse

	OpMethodCall   // static/library call: class-id, method-id, native-flag
	OpDynMethodCall // dynamic function-ref call: param-count, return-kind
	OpNewInstance
	OpLoadSelf
	OpLoadParent

	OpAppend // concatenation append during char-string interpolation

	OpPopInt
	OpPopFloat

	OpAcquireMutex
	OpReleaseMutex

	OpReturn

	// OpEndStmts is the sentinel opcode terminating every method's
	// instruction stream (§6.1).
	OpEndStmts
)

// ParamKind is the universal parameter-type tag of §6.1's declaration
// tables, lifted verbatim from the original compiler's sys.h ParamType
// enumeration (ten members: scalar/array forms of Char/Int/Float plus Byte
// array, Obj, ObjAry, and Func).
type ParamKind uint8

const (
	ParamChar ParamKind = iota
	ParamInt
	ParamFloat
	ParamByteAry
	ParamCharAry
	ParamIntAry
	ParamFloatAry
	ParamObj
	ParamObjAry
	ParamFunc
)

// DefaultFrameBudget is the fixed local-space byte budget of §4.4 step 2,
// carried over from the original compiler's sys.h LOCAL_SIZE constant. It is
// a package constant: emitMethod checks every method's frame against it, and
// there is no per-compilation override.
const DefaultFrameBudget = 192

// Instruction is one emitted opcode plus up to six operands: three ints, one
// float, two strings — the operand shape spec.md's emitter section uses for
// every instruction kind (class/method ids, jump targets, literal indices,
// line numbers, slot offsets, symbolic library-call names).
type Instruction struct {
	Op   Opcode
	Line int

	IntOp1, IntOp2, IntOp3 int32
	FloatOp                float64
	StrOp1, StrOp2         string
}

// Declaration is one entry of a method's declaration table (§6.1): the
// parameter-type tag plus, in debug builds, the declared name.
type Declaration struct {
	Kind ParamKind
	Name string // only meaningful when the target program is built with debug info
}

// Method is the intermediate form of ast.Method after emission: a flat
// instruction stream plus the declaration table the frame-size pass built.
type Method struct {
	ID          int
	Name        string // "Class:Simple" as emitted; Read fills it with EncodedName
	EncodedName string
	EncodedReturn string
	Kind        int // mirrors ast.MethodKind
	IsStatic    bool
	IsVirtual   bool
	HasAndOr    bool
	IsNative    bool
	IsFunction  bool
	ParamCount  int
	FrameSize   int

	Declarations []Declaration
	Instructions []Instruction
}

// Field is one class/instance field declaration carried into the
// intermediate program.
type Field struct {
	Kind ParamKind
	Name string
}

// Class is the intermediate form of ast.Class / linker.LibraryClass after id
// assignment (§4.4 "Class/method id assignment").
type Class struct {
	ID           int
	Name         string
	ParentID     int // -1 if none
	ParentName   string
	InterfaceIDs   []int
	InterfaceNames []string

	IsInterface bool
	IsVirtual   bool
	IsDebug     bool
	SourceFile  string

	ClassSpaceSize    int
	InstanceSpaceSize int

	ClassFields    []Field
	InstanceFields []Field
	Methods        []*Method
}

// Enum is the intermediate form of ast.Enum.
type Enum struct {
	Name   string
	Offset int
	Items  []EnumItem
}

type EnumItem struct {
	Name string
	ID   int
}

// Flavor selects the magic number / required sections of §6.1.
type Flavor int

const (
	FlavorExecutable Flavor = iota
	FlavorLibrary
	FlavorWeb
)

// Program is the fully lowered intermediate program the target writer
// consumes (§4.4, §6.1).
type Program struct {
	Flavor Flavor
	Debug  bool

	FloatStrings []float64
	IntStrings   []int32
	CharStrings  []string

	BundleNames []string // library artifacts only

	StringClassID int // executables only: the resolved System.String class id
	EntryClassID  int
	EntryMethodID int

	Enums   []*Enum
	Classes []*Class
}
