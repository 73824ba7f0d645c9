package mocks

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// MockRunnerCall records a single command invocation.
type MockRunnerCall struct {
	Name string
	Args []string
}

func (c MockRunnerCall) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// MockRunner records calls and returns configurable output and errors.
type MockRunner struct {
	Calls  []MockRunnerCall
	Err    error
	FailOn int // Fail on this call index (0-based), -1 means always fail if Err != nil

	// OutputData maps a call index (0-based) to the output returned for that invocation.
	OutputData map[int][]byte

	// OnCall, when set, runs before the call is answered. Tests use it to
	// emulate side effects such as dtc writing its output file.
	OnCall func(call MockRunnerCall) error
}

// NewMockRunner creates a MockRunner that always succeeds.
func NewMockRunner() *MockRunner {
	if !testing.Testing() {
		panic(fmt.Errorf("NewMockRunner cannot be used outside test"))
	}
	return &MockRunner{FailOn: -1}
}

// NewMockRunnerFailOnCall creates a MockRunner that returns err on the n-th
// call (0-based) and succeeds on all others.
func NewMockRunnerFailOnCall(n int, err error) *MockRunner {
	r := NewMockRunner()
	r.FailOn = n
	r.Err = err
	return r
}

func (mr *MockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := MockRunnerCall{Name: name, Args: append([]string(nil), args...)}
	mr.Calls = append(mr.Calls, call)
	idx := len(mr.Calls) - 1

	if mr.OnCall != nil {
		if err := mr.OnCall(call); err != nil {
			return nil, err
		}
	}
	var out []byte
	if mr.OutputData != nil {
		out = mr.OutputData[idx]
	}
	if mr.FailOn >= 0 && idx == mr.FailOn {
		return out, mr.Err
	}
	if mr.FailOn < 0 && mr.Err != nil {
		return out, mr.Err
	}
	return out, nil
}

// Commands returns every call rendered as a command line.
func (mr *MockRunner) Commands() []string {
	cmds := make([]string, 0, len(mr.Calls))
	for _, c := range mr.Calls {
		cmds = append(cmds, c.String())
	}
	return cmds
}
