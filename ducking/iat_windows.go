package ducking

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// PE constants needed to walk a loaded module's import table
const (
	imageDirectoryEntryImport = 1
	ntOptionalHdr32Magic      = 0x10b
	ntOptionalHdr64Magic      = 0x20b
	ordinalFlag32             = uintptr(1) << 31
	ordinalFlag64             = uintptr(1) << 63
)

type imageImportDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

type iatHooker struct{}

// NewHooker creates a hooker patching the import address table of the target
// module, the same mechanism the original function pointers were bound
// through at load time
func NewHooker() Hooker {
	return iatHooker{}
}

type iatHook struct {
	entry    *uintptr
	module   windows.Handle
	original uintptr
}

// Hook interposes funcName, as imported by targetModule from importModule,
// with a native callback built from replacement
func (iatHooker) Hook(targetModule, importModule, funcName string, replacement interface{}) (h Hook, err error) {
	// Load the target module. The returned handle keeps it pinned until the
	// hook is reversed.
	var mod windows.Handle
	if mod, err = windows.LoadLibrary(targetModule); err != nil {
		err = errors.Wrapf(err, "ducking: loading %s failed", targetModule)
		return
	}

	// Find the import table entry
	var entry *uintptr
	if entry, err = findImportEntry(uintptr(mod), importModule, funcName); err != nil {
		windows.FreeLibrary(mod)
		err = errors.Wrapf(err, "ducking: finding import entry of %s failed", funcName)
		return
	}

	// Swap the pointer
	var original uintptr
	if original, err = swapEntry(entry, windows.NewCallback(replacement)); err != nil {
		windows.FreeLibrary(mod)
		err = errors.Wrapf(err, "ducking: swapping import entry of %s failed", funcName)
		return
	}
	h = &iatHook{
		entry:    entry,
		module:   mod,
		original: original,
	}
	return
}

// Unhook restores the original function pointer
func (h *iatHook) Unhook() (err error) {
	if _, err = swapEntry(h.entry, h.original); err != nil {
		err = errors.Wrap(err, "ducking: restoring import entry failed")
		return
	}
	if err = windows.FreeLibrary(h.module); err != nil {
		err = errors.Wrap(err, "ducking: freeing module failed")
		return
	}
	return
}

// swapEntry writes a new function pointer into an import address table entry
// and returns the previous one. The page holding the entry is mapped
// read-only, so protection is lifted around the write.
func swapEntry(entry *uintptr, value uintptr) (original uintptr, err error) {
	var old uint32
	size := uintptr(unsafe.Sizeof(value))
	if err = windows.VirtualProtect(uintptr(unsafe.Pointer(entry)), size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		err = errors.Wrap(err, "ducking: lifting page protection failed")
		return
	}
	original = *entry
	*entry = value
	if err = windows.VirtualProtect(uintptr(unsafe.Pointer(entry)), size, old, &old); err != nil {
		err = errors.Wrap(err, "ducking: restoring page protection failed")
		return
	}
	return
}

// findImportEntry walks the PE headers of a loaded module and returns the
// import address table slot bound to funcName of importModule
func findImportEntry(base uintptr, importModule, funcName string) (entry *uintptr, err error) {
	// IMAGE_DOS_HEADER.e_lfanew
	ntHeaders := base + uintptr(*(*int32)(unsafe.Pointer(base + 0x3c)))

	// Optional header follows the PE signature (4 bytes) and the file header
	// (20 bytes)
	optionalHeader := ntHeaders + 4 + 20

	// The data directory offset within the optional header depends on the
	// image flavor
	var dataDirectory uintptr
	var ordinalFlag uintptr
	switch *(*uint16)(unsafe.Pointer(optionalHeader)) {
	case ntOptionalHdr32Magic:
		dataDirectory = optionalHeader + 96
		ordinalFlag = ordinalFlag32
	case ntOptionalHdr64Magic:
		dataDirectory = optionalHeader + 112
		ordinalFlag = ordinalFlag64
	default:
		err = errors.New("ducking: unknown optional header magic")
		return
	}

	// Import directory virtual address
	rva := *(*uint32)(unsafe.Pointer(dataDirectory + imageDirectoryEntryImport*8))
	if rva == 0 {
		err = errors.New("ducking: module has no import table")
		return
	}

	// Loop through import descriptors
	for d := (*imageImportDescriptor)(unsafe.Pointer(base + uintptr(rva))); d.Name != 0; d = (*imageImportDescriptor)(unsafe.Pointer(uintptr(unsafe.Pointer(d)) + unsafe.Sizeof(*d))) {
		// Not the wanted import module
		if !strings.EqualFold(cstringAt(base+uintptr(d.Name)), importModule) {
			continue
		}

		// The name table falls back to the address table in bound images
		names := d.OriginalFirstThunk
		if names == 0 {
			names = d.FirstThunk
		}

		// Loop through thunks
		for i := uintptr(0); ; i++ {
			name := *(*uintptr)(unsafe.Pointer(base + uintptr(names) + i*unsafe.Sizeof(uintptr(0))))
			if name == 0 {
				break
			}

			// Imported by ordinal, no name to compare
			if name&ordinalFlag != 0 {
				continue
			}

			// IMAGE_IMPORT_BY_NAME.Name starts after the 2 bytes hint
			if cstringAt(base+name+2) != funcName {
				continue
			}

			// The matching import address table slot
			entry = (*uintptr)(unsafe.Pointer(base + uintptr(d.FirstThunk) + i*unsafe.Sizeof(uintptr(0))))
			return
		}
	}
	err = errors.Errorf("ducking: %s not found in the imports of %s", funcName, importModule)
	return
}

// cstringAt reads a null-terminated ANSI string
func cstringAt(p uintptr) string {
	var bs []byte
	for {
		b := *(*byte)(unsafe.Pointer(p))
		if b == 0 {
			return string(bs)
		}
		bs = append(bs, b)
		p++
	}
}
