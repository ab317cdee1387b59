package sift

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of a memory transfer. In sift's
// unified memory model all four directions are plain copies; the kinds
// are kept so host code reads like its device-API counterpart.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

// DevicePtr represents a pointer to device memory. Use the typed view
// methods (Float32, Int32, Bytes) to access the underlying data and
// Offset for pointer arithmetic.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// MemoryPool manages device memory allocation with free-list reuse.
// Reusing blocks keeps repeated filter invocations from churning the
// allocator for the same count/offset/output buffer sizes.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte // keeps the backing array reachable
	ptr  unsafe.Pointer
	size int
	used bool
}

// NewMemoryPool creates a new memory pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Malloc allocates device memory of the specified size in bytes.
// The memory is aligned to MemoryAlignment.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy copies size bytes between host slices and device pointers.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	dstPtr, err := transferPointer("Memcpy", dst)
	if err != nil {
		return err
	}
	srcPtr, err := transferPointer("Memcpy", src)
	if err != nil {
		return err
	}

	if dstPtr != nil && srcPtr != nil && size > 0 {
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
	return nil
}

// transferPointer resolves a Memcpy endpoint to a raw pointer.
func transferPointer(op string, v interface{}) (unsafe.Pointer, error) {
	switch x := v.(type) {
	case DevicePtr:
		return x.ptr, nil
	case []byte:
		if len(x) > 0 {
			return unsafe.Pointer(&x[0]), nil
		}
		return nil, nil
	case []float32:
		if len(x) > 0 {
			return unsafe.Pointer(&x[0]), nil
		}
		return nil, nil
	case []int32:
		if len(x) > 0 {
			return unsafe.Pointer(&x[0]), nil
		}
		return nil, nil
	default:
		return nil, NewConfigError(op, fmt.Sprintf("unsupported endpoint type: %T", v))
	}
}

// MemoryPool methods

// Allocate allocates memory from the pool, reusing a free block when one
// is large enough.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)
	if alignedSize < MinAllocationSize {
		alignedSize = MinAllocationSize
	}

	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true

			mp.totalAlloc += int64(alloc.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}

			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	buf := make([]byte, alignedSize)
	alloc := &allocation{
		buf:  buf,
		ptr:  unsafe.Pointer(&buf[0]),
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(alloc.ptr)] = alloc

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}

	return DevicePtr{ptr: alloc.ptr, size: size}, nil
}

// Free returns memory to the pool.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewResourceError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats returns current and peak allocated bytes.
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// DevicePtr methods

// Float32 returns a float32 slice view of the device memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Int32 returns an int32 slice view of the device memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Bytes returns a byte slice view of the device memory.
func (d DevicePtr) Bytes() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset returns a DevicePtr advanced by the given number of bytes.
// The returned pointer shares the same underlying memory.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Size returns the size in bytes of the memory region.
func (d DevicePtr) Size() int {
	return d.size
}

// IsNil reports whether the pointer is the zero value.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}
