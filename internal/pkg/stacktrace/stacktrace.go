// Package stacktrace trims raw goroutine dumps down to the frames that
// belong to this module.
package stacktrace

import "strings"

// Frame is a single call site from a goroutine dump.
type Frame struct {
	Func string
	File string
}

// String renders the frame as "file func".
func (f Frame) String() string {
	if f.Func == "" {
		return f.File
	}
	return f.File + " " + f.Func
}

// Parse walks a debug.Stack dump and returns the frames whose file lives
// under an internal/ or cmd/ directory, with paths shortened to start there.
func Parse(stack []byte) []Frame {
	lines := strings.Split(string(stack), "\n")
	frames := make([]Frame, 0, len(lines)/2)

	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		file := line
		if end := strings.IndexByte(line[idx:], ' '); end != -1 {
			file = line[:idx+end]
		}

		short, ok := shorten(file)
		if !ok {
			continue
		}

		fn := strings.TrimSpace(lines[i-1])
		if p := strings.LastIndexByte(fn, '('); p > 0 {
			fn = fn[:p]
		}
		if s := strings.LastIndexByte(fn, '/'); s != -1 {
			fn = fn[s+1:]
		}

		frames = append(frames, Frame{Func: fn, File: short})
	}

	return frames
}

// InternalPaths returns the rendered frames of Parse.
func InternalPaths(stack []byte) []string {
	frames := Parse(stack)
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.String())
	}
	return out
}

func shorten(file string) (string, bool) {
	for _, marker := range []string{"/internal/", "/cmd/"} {
		if i := strings.Index(file, marker); i != -1 {
			return file[i+1:], true
		}
	}
	return "", false
}
