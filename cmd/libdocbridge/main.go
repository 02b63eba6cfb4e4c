// Command libdocbridge builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libdocbridge.so ./cmd/libdocbridge
//
// Every export returns an absent value (NULL, 0 or -1) on failure. Memory
// returned by the library is released with docbridge_free or
// docbridge_free_find_results.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	char*    document_id;
	char*    location;
	uint64_t size;
	uint64_t modified_time;
	uint32_t attributes;
} docbridge_find_result;
*/
import "C"

import (
	"context"
	"math"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"docbridge/internal/app"
	"docbridge/internal/bridge"
	"docbridge/internal/logging"
	"docbridge/internal/registry"
)

var (
	mu       sync.Mutex
	current  *app.App
	fallback *bridge.Boundary
	openApp  = app.Open
)

// boundary returns the active boundary, starting the bridge with the
// default configuration on first use. When that fails, a boundary serving
// direct paths only is kept until the next docbridge_init.
func boundary() *bridge.Boundary {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return current.Boundary
	}
	if fallback != nil {
		return fallback
	}
	a, err := openApp(context.Background(), app.Options{})
	if err != nil {
		logging.Error("bridge initialization failed, serving direct paths only", zap.Error(err))
		fallback = bridge.NewBoundary(bridge.New(registry.New(nil)))
		return fallback
	}
	current = a
	return current.Boundary
}

// goLength converts a C buffer length for C.GoBytes, which takes a C int.
func goLength(n uint64) (int, bool) {
	if n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

//export docbridge_init
func docbridge_init(configPath *C.char, debug C.int) C.int {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		current.Close()
		current = nil
	}
	fallback = nil
	opts := app.Options{Debug: debug != 0}
	if configPath != nil {
		opts.ConfigPath = C.GoString(configPath)
	}
	a, err := openApp(context.Background(), opts)
	if err != nil {
		logging.Error("bridge initialization failed", zap.Error(err))
		return -1
	}
	current = a
	return 0
}

//export docbridge_shutdown
func docbridge_shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		current.Close()
		current = nil
	}
	fallback = nil
}

//export docbridge_free
func docbridge_free(p unsafe.Pointer) {
	C.free(p)
}

//export docbridge_read_all
func docbridge_read_all(loc *C.char, maxSize C.uint64_t, outLen *C.size_t) unsafe.Pointer {
	data := boundary().ReadAll(C.GoString(loc), uint64(maxSize))
	if data == nil {
		return nil
	}
	if outLen != nil {
		*outLen = C.size_t(len(data))
	}
	return C.CBytes(data)
}

//export docbridge_write_all
func docbridge_write_all(loc *C.char, data unsafe.Pointer, length C.size_t) C.int {
	n, ok := goLength(uint64(length))
	if !ok {
		logging.Warn("write rejected, buffer too large", zap.Uint64("length", uint64(length)))
		return 0
	}
	var buf []byte
	if data != nil && n > 0 {
		buf = C.GoBytes(data, C.int(n))
	}
	return cbool(boundary().WriteAll(C.GoString(loc), buf))
}

//export docbridge_delete
func docbridge_delete(loc *C.char) C.int {
	return cbool(boundary().Delete(C.GoString(loc)))
}

//export docbridge_display_name
func docbridge_display_name(loc *C.char) *C.char {
	name, ok := boundary().DisplayName(C.GoString(loc))
	if !ok {
		return nil
	}
	return C.CString(name)
}

//export docbridge_leaf_name
func docbridge_leaf_name(path *C.char) *C.char {
	return C.CString(boundary().LeafName(C.GoString(path)))
}

//export docbridge_stat
func docbridge_stat(loc *C.char, size, modifiedTime *C.uint64_t, attributes *C.uint32_t) C.int {
	sd, ok := boundary().Stat(C.GoString(loc))
	if !ok {
		return 0
	}
	if size != nil {
		*size = C.uint64_t(sd.Size)
	}
	if modifiedTime != nil {
		*modifiedTime = C.uint64_t(sd.ModifiedTime)
	}
	if attributes != nil {
		*attributes = C.uint32_t(sd.Attributes)
	}
	return 1
}

//export docbridge_file_exists
func docbridge_file_exists(loc *C.char) C.int {
	return cbool(boundary().FileExists(C.GoString(loc)))
}

//export docbridge_directory_exists
func docbridge_directory_exists(loc *C.char) C.int {
	return cbool(boundary().DirectoryExists(C.GoString(loc)))
}

//export docbridge_open_descriptor
func docbridge_open_descriptor(loc, mode *C.char) C.int {
	return C.int(boundary().OpenDescriptor(C.GoString(loc), C.GoString(mode)))
}

//export docbridge_find_files
func docbridge_find_files(root *C.char, flags C.uint32_t, outCount *C.size_t) *C.docbridge_find_result {
	results := boundary().FindFiles(C.GoString(root), bridge.FindFlags(flags))
	if len(results) == 0 {
		return nil
	}
	ptr := (*C.docbridge_find_result)(C.calloc(C.size_t(len(results)), C.size_t(unsafe.Sizeof(C.docbridge_find_result{}))))
	if ptr == nil {
		return nil
	}
	out := unsafe.Slice(ptr, len(results))
	for i, r := range results {
		out[i] = C.docbridge_find_result{
			document_id:   C.CString(r.DocumentID),
			location:      C.CString(r.Location),
			size:          C.uint64_t(r.Size),
			modified_time: C.uint64_t(r.ModifiedTime),
			attributes:    C.uint32_t(r.Attributes),
		}
	}
	if outCount != nil {
		*outCount = C.size_t(len(results))
	}
	return ptr
}

//export docbridge_free_find_results
func docbridge_free_find_results(results *C.docbridge_find_result, count C.size_t) {
	if results == nil {
		return
	}
	for _, r := range unsafe.Slice(results, int(count)) {
		C.free(unsafe.Pointer(r.document_id))
		C.free(unsafe.Pointer(r.location))
	}
	C.free(unsafe.Pointer(results))
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func main() {}
