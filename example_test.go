package ipipe_test

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bwHC-gko/ipipe"
)

// One goroutine reads lines while the main goroutine writes them, each on
// its own end of the same pipe. Both opens block until the peer arrives, so
// the two ends must be opened concurrently.
func Example() {
	path := ipipe.TempPath()
	defer ipipe.Remove(path)

	lines := make(chan string, 1)
	go func() {
		reader, err := ipipe.Open(path, ipipe.WithMode(ipipe.ModeRead))
		if err != nil {
			lines <- err.Error()
			return
		}
		defer reader.Close()
		sc := bufio.NewScanner(reader)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	writer, err := ipipe.Open(path, ipipe.WithMode(ipipe.ModeWrite))
	if err != nil {
		fmt.Println(err)
		return
	}
	io.WriteString(writer, "hello over the pipe\n")
	writer.Close()

	for line := range lines {
		fmt.Println(line)
	}
	// Output: hello over the pipe
}

