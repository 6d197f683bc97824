package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/chromium"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/tests/ws"
)

type globalTestState struct {
	*globalState
	Stdout, Stderr *bytes.Buffer
	ExpectedExitCode int
}

func newGlobalTestState(t *testing.T, args ...string) *globalTestState {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	outMutex := &sync.Mutex{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	logger := &logrus.Logger{
		Out:       &consoleWriter{stderr, false, outMutex},
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	ts := &globalTestState{Stdout: stdout, Stderr: stderr}
	defaultFlags := defaultGlobalFlags()
	ts.globalState = &globalState{
		Ctx:          ctx,
		CmdArgs:      append([]string{"webquery"}, args...),
		Env:          map[string]string{},
		DefaultFlags: defaultFlags,
		Flags:        defaultFlags,
		FS:           afero.NewMemMapFs(),
		Stdout:       &consoleWriter{stdout, false, outMutex},
		Stderr:       &consoleWriter{stderr, false, outMutex},
		Logger:       logger,
		Dial: func(l *log.Logger) func(context.Context, string) (api.Transport, error) {
			return chromium.NewDialer(nil, l)
		},
		OSExit: func(code int) {
			// Tests run with t.Parallel, so the code is checked here
			// rather than stored.
			require.Equal(t, ts.ExpectedExitCode, code, "stderr: %s", stderr.String())
		},
	}
	return ts
}

// writeFile puts a file on the in-memory file system commands read from.
func (ts *globalTestState) writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(ts.FS, path, []byte(data), 0o644))
}

func (ts *globalTestState) run() {
	newRootCommand(ts.globalState).execute()
}

// browserPage fakes the script side of a document holding a single
// rendered <button id="go">Buy now</button>.
func browserPage(expression string) (string, string) {
	str := func(s string) string { return fmt.Sprintf(`{"type":"string","value":%q}`, s) }
	boolean := func(b bool) string { return fmt.Sprintf(`{"type":"boolean","value":%t}`, b) }

	switch {
	case strings.Contains(expression, "getElementById("):
		return boolean(strings.Contains(expression, `getElementById("go")`)), ""
	case strings.HasSuffix(expression, `.readyState == "complete";`):
		return boolean(true), ""
	case strings.HasSuffix(expression, `.getAttribute("id");`):
		return str("go"), ""
	case strings.HasSuffix(expression, ".tagName;"):
		return str("BUTTON"), ""
	case strings.HasSuffix(expression, ".textContent;"):
		return str(" Buy\n now "), ""
	case strings.HasSuffix(expression, "offsetParent != null;"):
		return boolean(true), ""
	case strings.Contains(expression, ".dispatchEvent(event)"):
		return boolean(true), ""
	}
	return `{"type":"undefined"}`, ""
}

func newBrowserServer(t *testing.T) *ws.Server {
	t.Helper()
	return ws.NewServer(t, ws.WithCDPHandler("/devtools/page/1", ws.CDPEvaluateHandler(browserPage), nil))
}
