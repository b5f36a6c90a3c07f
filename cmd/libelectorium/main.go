// Command libelectorium builds the fuzz harness as a C library:
//
//	go build -buildmode=c-shared -o libelectorium_fuzzable.so ./cmd/libelectorium
//
// C callers include electorium_fuzzable.h and treat Fuzz as opaque.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct Fuzz { uintptr_t handle; } Fuzz;
*/
import "C"

import (
	"unsafe"

	"github.com/VeltarosLabs/electorium/internal/ffi"
	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

//export electorium_fuzz_new
func electorium_fuzz_new(verbose C.bool) *C.Fuzz {
	h, err := ffi.Default.New(bool(verbose))
	if err != nil {
		return nil
	}
	f := (*C.Fuzz)(C.malloc(C.size_t(unsafe.Sizeof(C.Fuzz{}))))
	f.handle = C.uintptr_t(h)
	return f
}

//export electorium_fuzz_destroy
func electorium_fuzz_destroy(f *C.Fuzz) {
	if f == nil {
		return
	}
	_ = ffi.Default.Destroy(ffi.Handle(f.handle))
	C.free(unsafe.Pointer(f))
}

//export electorium_fuzz_run
func electorium_fuzz_run(f *C.Fuzz, buf *C.uint8_t, n C.uintptr_t) C.int16_t {
	if f == nil {
		return C.int16_t(fuzz.StatusNoWinner)
	}
	var data []byte
	if buf != nil && n > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(n))
	}
	st, err := ffi.Default.Run(ffi.Handle(f.handle), data)
	if err != nil {
		return C.int16_t(fuzz.StatusNoWinner)
	}
	return C.int16_t(st)
}

func main() {}
