//go:build !windows

// These tests read a registry pipe back through its own duplex handle, which
// relies on FIFO semantics; on Windows a separate client process would have
// to sit on the other end.

package ipipe_test

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwHC-gko/ipipe"
)

func initTestPipe(t *testing.T, reg *ipipe.Registry) (string, *ipipe.Pipe) {
	t.Helper()
	name := ipipe.TempName()
	handle, err := reg.Init(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		handle.Close()
		reg.Close(name)
		path, _ := ipipe.PipePath(name)
		ipipe.Remove(path)
	})
	return name, handle
}

func TestRegistry_Print(t *testing.T) {
	reg := ipipe.NewRegistry()
	name, reader := initTestPipe(t, reg)

	n, err := reg.Print(name, "plain ")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = reg.Printf(name, "%s-%d ", "fmt", 42)
	require.NoError(t, err)
	_, err = reg.Println(name, "line")
	require.NoError(t, err)

	buf := make([]byte, 64)
	read, err := reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "plain fmt-42 line\n", string(buf[:read]))

	stats := reg.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(len("plain fmt-42 line\n")), stats[0].BytesWritten)
}

// Two goroutines hammer the same entry; the per-entry lock must keep every
// individual line in one piece.
func TestRegistry_ConcurrentPrintsDoNotInterleave(t *testing.T) {
	reg := ipipe.NewRegistry()
	name, reader := initTestPipe(t, reg)

	const perWriter = 200
	lineFor := func(tag string) string { return strings.Repeat(tag, 40) }

	var wg sync.WaitGroup
	for _, tag := range []string{"a", "b"} {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := reg.Println(name, lineFor(tag))
				assert.NoError(t, err)
			}
		}(tag)
	}

	counts := map[string]int{}
	sc := bufio.NewScanner(reader)
	for i := 0; i < 2*perWriter; i++ {
		require.True(t, sc.Scan(), "scanner ended early: %v", sc.Err())
		line := sc.Text()
		switch line {
		case lineFor("a"), lineFor("b"):
			counts[line[:1]]++
		default:
			t.Fatalf("interleaved line: %q", line)
		}
	}
	wg.Wait()

	assert.Equal(t, perWriter, counts["a"])
	assert.Equal(t, perWriter, counts["b"])
}

// A Print parked in a full-pipe write (no reader draining) must not wedge
// the rest of the registry: Stats keeps answering and Close both returns
// promptly and unblocks the write.
func TestRegistry_BlockedPrintDoesNotWedgeRegistry(t *testing.T) {
	reg := ipipe.NewRegistry()
	name, handle := initTestPipe(t, reg)
	// Drop our duplicate so the stored handle holds the last reference and
	// Close(name) really releases the descriptor.
	require.NoError(t, handle.Close())

	printDone := make(chan error, 1)
	go func() {
		// Far more than the FIFO buffer holds; with nobody reading this
		// write parks inside the entry's stream lock.
		_, err := reg.Print(name, strings.Repeat("x", 1<<20))
		printDone <- err
	}()

	// Let the write fill the pipe and block.
	time.Sleep(100 * time.Millisecond)

	statsDone := make(chan []ipipe.PipeStat, 1)
	go func() { statsDone <- reg.Stats() }()
	select {
	case stats := <-statsDone:
		require.Len(t, stats, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Stats hung behind a blocked Print")
	}

	closeDone := make(chan error, 1)
	go func() { closeDone <- reg.Close(name) }()
	select {
	case err := <-closeDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung behind a blocked Print")
	}

	select {
	case err := <-printDone:
		assert.ErrorIs(t, err, ipipe.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Print not unblocked by Close")
	}
}

// Handles handed out by Init or Get survive the registry entry's removal;
// only the last close releases the pipe.
func TestRegistry_HandleOutlivesEntry(t *testing.T) {
	reg := ipipe.NewRegistry()
	name, handle := initTestPipe(t, reg)

	require.NoError(t, reg.Close(name))

	_, err := handle.Write([]byte("after close"))
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, err := handle.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "after close", string(buf[:n]))
}

// The registry addresses pipes by name so call sites never pass handles
// around: one side calls Init, any other site calls Print.
func Example_registry() {
	name := ipipe.TempName()
	reader, err := ipipe.Init(name)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() {
		reader.Close()
		ipipe.Close(name)
		path, _ := ipipe.PipePath(name)
		ipipe.Remove(path)
	}()

	if _, err := ipipe.Println(name, "printed by name"); err != nil {
		fmt.Println(err)
		return
	}

	sc := bufio.NewScanner(reader)
	if sc.Scan() {
		fmt.Println(sc.Text())
	}
	// Output: printed by name
}
