package cmd_test

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/weave-lang/weavec/cmd/weavec/cmd"
)

// TestMain lets `exec weavec ...` inside a .txtar script run weavec in the
// test binary itself, the same registration pattern cmd/cue/cmd's own
// script_test.go uses for the cue binary.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"weavec": cmd.Main,
	}))
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
