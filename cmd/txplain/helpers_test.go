package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixturePath = "../../service/interpret/testdata/created_for_recipient.json"

// runApp runs the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := newApp().Run(append([]string{"txplain"}, args...))

	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}
