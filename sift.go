package sift

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Device represents a compute device. In sift, this is the host CPU with its
// cores and memory, described the way an OpenCL platform would describe it.
type Device struct {
	ID       int    // Unique device identifier
	Name     string // Human-readable device name
	TotalMem uint64 // Total available memory in bytes
	NumCores int    // Number of CPU cores
	MaxLanes int    // Maximum lanes per work-group
}

// Context represents an execution context for sift operations.
// It manages device memory, stream execution, and kernel dispatch.
// A Context must be created (or the package-level default used) before
// any operation and should be destroyed when no longer needed.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
//
// Errors raised by asynchronous work (for example a lane panicking inside
// a kernel) are held until the next Synchronize call reports them.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// WorkItem identifies a lane's position within the launch geometry.
// It mirrors OpenCL's get_group_id/get_local_id/get_local_size/get_num_groups.
type WorkItem struct {
	Group  int // work-group index within the launch
	Local  int // lane index within the group
	Lanes  int // lanes per group
	Groups int // number of groups in the launch
}

// Global returns the lane's global index: Group*Lanes + Local.
func (w WorkItem) Global() int {
	return w.Group*w.Lanes + w.Local
}

// KernelFunc is a function executed once per lane. All lanes of a group
// run concurrently and share the Group passed to them; lanes coordinate
// through Group.Sync, never through external locks.
type KernelFunc func(item WorkItem, grp *Group)

// Global runtime state
var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:       0,
			Name:     deviceName(),
			TotalMem: getSystemMemory(),
			NumCores: runtime.NumCPU(),
			MaxLanes: SharedBufferCapacity,
		}

		defaultContext = &Context{
			device:  defaultDevice,
			streams: make(map[int]*Stream),
			memory:  NewMemoryPool(),
		}

		defaultContext.defaultStream = defaultContext.CreateStream()
	})
}

// Malloc allocates device memory of the specified size in bytes using the
// default context. The memory is aligned for SIMD access.
//
// Example:
//
//	d_data, err := sift.Malloc(1024 * 4) // room for 1024 float32s
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sift.Free(d_data)
func Malloc(size int) (DevicePtr, error) {
	return defaultContext.Malloc(size)
}

// Free releases device memory allocated by Malloc.
// It is safe to call Free with a zero-value DevicePtr.
func Free(ptr DevicePtr) error {
	return defaultContext.Free(ptr)
}

// Memcpy copies memory between host and device on the default context.
// Supports DevicePtr, []float32, []int32 and []byte endpoints.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Launch executes a kernel on the default context's default stream.
// The launch geometry is groups work-groups of lanes lanes each; lanes
// must be a positive power of two no larger than SharedBufferCapacity.
//
// Launch returns immediately after validation; kernel execution is
// asynchronous and any execution error is reported by Synchronize.
func Launch(kernel KernelFunc, groups, lanes int) error {
	return defaultContext.Launch(kernel, groups, lanes)
}

// Synchronize waits for all operations on all streams of the default
// context to complete and reports the first execution error, if any.
func Synchronize() error {
	return defaultContext.Synchronize()
}

// GetDevice returns the current device information.
func GetDevice() *Device {
	return defaultDevice
}

// SetDevice sets the active device. Only device 0 exists.
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// GetDeviceCount returns the number of available devices, always 1.
func GetDeviceCount() int {
	return 1
}

// Default returns the package-level default context.
func Default() *Context {
	return defaultContext
}

// NewContext creates an independent context sharing the device but with
// its own memory pool and streams.
func NewContext() *Context {
	ctx := &Context{
		device:  defaultDevice,
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
	ctx.defaultStream = ctx.CreateStream()
	return ctx
}

// Context methods

// CreateStream creates a new execution stream.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func(), 1000),
		done:  make(chan struct{}),
	}

	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// Launch executes a kernel on the default stream.
func (ctx *Context) Launch(kernel KernelFunc, groups, lanes int) error {
	return ctx.LaunchStream(kernel, groups, lanes, ctx.defaultStream)
}

// LaunchStream executes a kernel on a specific stream.
func (ctx *Context) LaunchStream(kernel KernelFunc, groups, lanes int, stream *Stream) error {
	return ctx.launchInternal(kernel, groups, lanes, stream)
}

// Synchronize waits for all streams to complete and returns the first
// sticky execution error across them.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	var first error
	for _, stream := range streams {
		if err := stream.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy shuts down all streams owned by the context. The context must
// not be used afterwards.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for id, s := range ctx.streams {
		s.Close()
		delete(ctx.streams, id)
	}
}

// Stream methods

// worker processes tasks for a stream in submission order.
func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Synchronize waits for all tasks in the stream to complete and returns
// the stream's pending error, if any. The error is cleared once
// retrieved, like cudaGetLastError.
func (s *Stream) Synchronize() error {
	s.wg.Wait()
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Submit adds a task to the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Close stops the stream worker after draining pending tasks.
func (s *Stream) Close() {
	s.wg.Wait()
	close(s.tasks)
	<-s.done
}

// setErr records the first asynchronous error observed on the stream.
func (s *Stream) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}
