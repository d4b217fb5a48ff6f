package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const dump = `goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/authpilot/internal/pkg/goroutine.(*Manager).run.func1()
	/src/authpilot/internal/pkg/goroutine/goroutine.go:88 +0x45
panic({0x1029a40?, 0x10d7e90?})
	/usr/local/go/src/runtime/panic.go:770 +0x132
github.com/shandysiswandi/authpilot/internal/app.(*App).runTarget(0xc0000a6000, {0x10e1b28, 0xc0000b4000})
	/src/authpilot/internal/app/run.go:41 +0x1d2
github.com/shandysiswandi/authpilot/cmd.newLoginCommand.func1(0xc000136300?, {0x1031b8a?, 0x0?, 0x0?})
	/src/authpilot/cmd/login.go:30 +0x25
`

func TestParse(t *testing.T) {
	frames := Parse([]byte(dump))

	assert.Equal(t, []Frame{
		{Func: "goroutine.(*Manager).run.func1", File: "internal/pkg/goroutine/goroutine.go:88"},
		{Func: "app.(*App).runTarget", File: "internal/app/run.go:41"},
		{Func: "cmd.newLoginCommand.func1", File: "cmd/login.go:30"},
	}, frames)
}

func TestInternalPaths(t *testing.T) {
	paths := InternalPaths([]byte(dump))

	assert.Len(t, paths, 3)
	assert.Equal(t, "internal/app/run.go:41 app.(*App).runTarget", paths[1])
}

func TestParse_NoInternalFrames(t *testing.T) {
	assert.Empty(t, Parse([]byte("goroutine 1 [running]:\nmain.main()\n\t/usr/local/go/src/main.go:3 +0x1\n")))
	assert.Empty(t, Parse(nil))
}
