package detector

import (
	"context"
	"fmt"
	"strconv"

	"focustrack/internal/sysquery"
)

// X11InputMonitor samples the input gap through xprintidle, which reports
// milliseconds since the last X11 input event.
type X11InputMonitor struct {
	exec *sysquery.Executor
}

func NewX11InputMonitor(exec *sysquery.Executor) *X11InputMonitor {
	return &X11InputMonitor{exec: exec}
}

func X11InputAvailable() bool {
	return sysquery.Available("xprintidle")
}

func (m *X11InputMonitor) SecondsSinceLastInput() (float64, error) {
	out, err := m.exec.Run(context.Background(), "xprintidle")
	if err != nil {
		return 0, err
	}
	ms, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("parse xprintidle output: %w", err)
	}
	return ms / 1000, nil
}
