package linker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/edsrzf/mmap-go"
	"go.mozilla.org/pkcs7"
	"golang.org/x/mod/semver"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/mangle"
	"github.com/sgzwiz/oblc/internal/target"
)

// Linker owns every library loaded for one compilation (§4.1): their class/
// enum/method tables, merged literal pools, and the name-search surface the
// context analyzer calls into.
type Linker struct {
	SearchRoot string // from the OBL_LIB_PATH environment variable, if set

	// RequireMinVersion, when non-empty, is a semver constraint ("v1.2.0")
	// libraries may optionally satisfy via an embedded build tag; unset
	// libraries (the common case, since §6.1 itself has no such field) are
	// never rejected on this basis.
	RequireMinVersion string

	classes map[string]*LibraryClass
	enums   map[string]*LibraryEnum
	bundles map[string][]string // bundle name -> class names it contributes

	// units holds one entry per loaded library file, its literal pools still
	// keyed by the library's own local indices. ResolveExternalMethodCalls
	// merges these into the program's pools and rewrites every instruction
	// that referenced a local index (§4.1 "Post-load linking").
	units []*unit
}

type unit struct {
	prog    *ir.Program
	classes []*LibraryClass
}

func New() *Linker {
	return &Linker{
		classes: map[string]*LibraryClass{},
		enums:   map[string]*LibraryEnum{},
		bundles: map[string][]string{},
	}
}

func newMethod(owner *LibraryClass, m *ir.Method) *Method {
	paramTypes := make([]*ast.Type, 0, len(m.Declarations))
	for _, d := range parseParamSection(m.EncodedName) {
		paramTypes = append(paramTypes, d)
	}
	retType := ast.NewScalar(ast.KindNil)
	if m.EncodedReturn != "" {
		decoded := mangle.DecodeParams(m.EncodedReturn + ",")
		if len(decoded) == 1 {
			retType = decoded[0]
		}
	}
	return &Method{Owner: owner, raw: m, ParamTypes: paramTypes, ReturnType: retType}
}

// parseParamSection extracts the "<params>" segment of an encoded
// "Class:Simple:params" method name and decodes it (§4.1, §6.2).
func parseParamSection(encodedName string) []*ast.Type {
	idx := strings.LastIndex(encodedName, ":")
	if idx < 0 {
		return nil
	}
	return mangle.DecodeParams(encodedName[idx+1:])
}

// LoadPaths loads every library file named, resolving a bare name (no
// directory separator, no extension) against SearchRoot by globbing
// "**/<name>.obl" when the literal path does not exist (§4.1 "possibly from
// an environment-provided search root").
func (l *Linker) LoadPaths(paths []string) error {
	for _, p := range paths {
		resolved, err := l.resolve(p)
		if err != nil {
			return fmt.Errorf("resolving library %q: %w", p, err)
		}
		if err := l.loadFile(resolved); err != nil {
			return fmt.Errorf("loading library %q: %w", resolved, err)
		}
	}
	return nil
}

func (l *Linker) resolve(p string) (string, error) {
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	if l.SearchRoot == "" {
		return "", fmt.Errorf("library file not found and no search root configured")
	}
	pattern := "**/" + strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + ".obl"
	matches, err := doublestar.Glob(os.DirFS(l.SearchRoot), pattern)
	if err != nil {
		return "", fmt.Errorf("globbing search root: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("library %q not found under search root %q", p, l.SearchRoot)
	}
	return filepath.Join(l.SearchRoot, matches[0]), nil
}

// loadFile implements §4.1's "Load protocol": read the whole file (memory-
// mapped when possible), optionally verify a detached PKCS#7 signature, then
// parse enums/classes/methods/instructions via the shared target reader.
func (l *Linker) loadFile(path string) error {
	data, err := readWholeFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	if sigData, err := os.ReadFile(path + ".p7s"); err == nil {
		if err := verifyDetachedSignature(sigData, data); err != nil {
			return fmt.Errorf("signature verification failed: %w", err)
		}
	}

	prog, err := target.Read(data)
	if err != nil {
		return fmt.Errorf("parsing bytecode: %w", err)
	}
	if prog.Flavor != ir.FlavorLibrary {
		return fmt.Errorf("%q is not a library artifact", path)
	}

	if l.RequireMinVersion != "" {
		if tag := buildTagOf(prog); tag != "" && semver.Compare(tag, l.RequireMinVersion) < 0 {
			return fmt.Errorf("library build tag %s is older than required %s", tag, l.RequireMinVersion)
		}
	}

	bundleName := ""
	if len(prog.BundleNames) > 0 {
		bundleName = prog.BundleNames[0]
	}

	for _, e := range prog.Enums {
		l.enums[e.Name] = &LibraryEnum{Name: e.Name, Offset: e.Offset, Items: append([]ir.EnumItem(nil), e.Items...)}
	}
	u := &unit{prog: prog}
	for _, c := range prog.Classes {
		lc := newLibraryClass(c)
		l.classes[c.Name] = lc
		u.classes = append(u.classes, lc)
		l.bundles[bundleName] = append(l.bundles[bundleName], c.Name)
	}
	l.units = append(l.units, u)
	return nil
}

// buildTagOf reads an optional semver-shaped build tag a library may embed
// as its first interned char-string literal, purely as an additive version
// signal layered on top of the raw format-version check (§6.1/§7); the wire
// format itself has no such field, so an absent or non-semver first string
// is simply ignored.
func buildTagOf(prog *ir.Program) string {
	if len(prog.CharStrings) == 0 {
		return ""
	}
	if !semver.IsValid(prog.CharStrings[0]) {
		return ""
	}
	return prog.CharStrings[0]
}

func verifyDetachedSignature(sigData, content []byte) error {
	p7, err := pkcs7.Parse(sigData)
	if err != nil {
		return err
	}
	p7.Content = content
	return p7.Verify()
}

// readWholeFile memory-maps the file when possible (mirroring how a PE
// parser maps its input rather than buffering it), falling back to a plain
// read for inputs mmap cannot handle (pipes, zero-length files).
func readWholeFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if info, statErr := f.Stat(); statErr == nil && info.Size() > 0 {
		if m, mmapErr := mmap.Map(f, mmap.RDONLY, 0); mmapErr == nil {
			out := make([]byte, len(m))
			copy(out, m)
			_ = m.Unmap()
			return out, nil
		}
	}
	return os.ReadFile(path)
}
