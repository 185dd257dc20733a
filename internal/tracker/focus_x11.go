package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"focustrack/internal/sysquery"
)

// X11FocusSource resolves the frontmost window through xdotool and xprop.
// Any command failure surfaces as ErrFocusUnavailable: a bare desktop or a
// non-X11 session is a degraded capability, not an error.
type X11FocusSource struct {
	exec *sysquery.Executor
}

func NewX11FocusSource(exec *sysquery.Executor) *X11FocusSource {
	return &X11FocusSource{exec: exec}
}

// X11Available reports whether the commands the source shells out to exist.
func X11Available() bool {
	return sysquery.Available("xdotool") && sysquery.Available("xprop")
}

func (s *X11FocusSource) FrontmostWindow(ctx context.Context) (Focus, error) {
	windowID, err := s.exec.Run(ctx, "xdotool", "getactivewindow")
	if err != nil || windowID == "" {
		return Focus{}, fmt.Errorf("%w: no active window", ErrFocusUnavailable)
	}

	class, err := s.windowClass(ctx, windowID)
	if err != nil {
		return Focus{}, err
	}
	focus := Focus{
		BundleID: "x11." + strings.ToLower(class),
		AppName:  class,
	}

	if title, err := s.exec.Run(ctx, "xdotool", "getwindowname", windowID); err == nil && title != "" {
		focus.WindowTitle = &title
	}
	if rawPID, err := s.exec.Run(ctx, "xdotool", "getwindowpid", windowID); err == nil {
		if pid, err := strconv.Atoi(rawPID); err == nil {
			focus.PID = pid
		}
	}
	return focus, nil
}

func (s *X11FocusSource) windowClass(ctx context.Context, windowID string) (string, error) {
	// Output shape: WM_CLASS(STRING) = "instance", "Class"
	out, err := s.exec.Run(ctx, "xprop", "-id", windowID, "WM_CLASS")
	if err != nil {
		return "", fmt.Errorf("%w: read window class", ErrFocusUnavailable)
	}
	parts := strings.Split(out, `"`)
	if len(parts) < 4 {
		return "", fmt.Errorf("%w: unparseable window class", ErrFocusUnavailable)
	}
	class := strings.TrimSpace(parts[len(parts)-2])
	if class == "" {
		return "", fmt.Errorf("%w: empty window class", ErrFocusUnavailable)
	}
	return class, nil
}
