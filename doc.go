// Package ipipe provides a cross-platform abstraction over operating-system
// named pipes: Unix FIFOs and Windows named-pipe objects behind one handle
// type usable as a blocking byte-stream reader and writer.
//
// A pipe is addressed either by a short name, resolved against the platform
// default namespace (the temp directory on Unix, `\\.\pipe\` on Windows), or
// by a fully qualified path:
//
//	p, err := ipipe.OpenName("applog")
//	p, err := ipipe.Open(`/tmp/applog`)
//	p, err := ipipe.CreateTemp() // pipe_<pid>_<random> under the default root
//
// Open blocks until both ends of the pipe are present, on every platform: a
// read-mode open waits for a writer (FIFO open semantics on Unix, a connect
// accept on Windows), a write-mode open waits for a reader. The default
// duplex mode never blocks at open time. Use OpenContext to bound the wait.
//
// Read and Write are blocking OS calls; callers supply their own concurrency,
// typically one goroutine per pipe end. Dup produces another handle sharing
// the same OS resource so one end can be moved into a separate goroutine.
// The resource is released when the last handle referencing it is closed.
//
// End of stream is uniform across platforms: Read returns io.EOF once the
// peer has disconnected and no buffered data remains, and Write returns
// ErrPeerClosed. Neither is an I/O failure; genuine failures surface as
// *OpError.
//
// Platform asymmetry that deliberately leaks through: on Unix a duplex handle
// holds both FIFO ends, so it can read back its own writes and never observes
// EOF; on Windows reads and writes always go to the connected peer. Code that
// must behave identically on both platforms should use distinct read-mode and
// write-mode handles.
//
// The package also hosts a process-wide registry of named pipes (Init, Get,
// Print) so independent call sites can write to a pipe by name alone without
// passing handles around.
package ipipe
