package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/export"
	"github.com/livetemplate/tinkerpen/internal/server"
)

// App holds the desktop application state.
type App struct {
	ctx        context.Context
	server     *server.Server
	httpServer *http.Server
	serverPort int
	currentDir string
	mu         sync.RWMutex
}

// NewApp creates a new App.
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	a.stopServer()
}

// stopServer stops the current server if running.
func (a *App) stopServer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		a.httpServer.Close()
		a.httpServer = nil
	}
	if a.server != nil {
		a.server.Close()
		a.server = nil
	}
	a.serverPort = 0
	a.currentDir = ""
}

// NewPen starts an editor with empty buffers.
func (a *App) NewPen() error {
	return a.start("")
}

// OpenDirectory asks for a project directory and opens it in the editor.
func (a *App) OpenDirectory() (string, error) {
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title:            "Open Project Directory",
		DefaultDirectory: GetDefaultDirectory(),
	})
	if err != nil {
		return "", err
	}
	if selection == "" {
		return "", nil
	}

	if err := a.start(selection); err != nil {
		return "", err
	}
	return selection, nil
}

// start runs a tinkerpen server for dir (empty for no project) on a free
// local port and points the window at it.
func (a *App) start(dir string) error {
	var absDir string
	if dir != "" {
		var err error
		absDir, err = filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	a.stopServer()

	cfgDir := absDir
	if cfgDir == "" {
		cfgDir = GetDefaultDirectory()
	}
	cfg, err := config.LoadFromDir(cfgDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var opts []server.Option
	if absDir != "" {
		opts = append(opts, server.WithProjectDir(absDir))
		// Edits made in an external editor show up in the window.
		cfg.Features.HotReload = true
	}
	srv := server.New(cfg, opts...)

	if cfg.Features.HotReload {
		if err := srv.EnableWatch(); err != nil {
			srv.Close()
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		srv.Close()
		return fmt.Errorf("failed to find free port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{Handler: srv}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	a.mu.Lock()
	a.server = srv
	a.httpServer = httpServer
	a.serverPort = port
	a.currentDir = absDir
	a.mu.Unlock()

	title := "tinkerpen"
	if absDir != "" {
		title = fmt.Sprintf("tinkerpen - %s", filepath.Base(absDir))
	}
	runtime.WindowSetTitle(a.ctx, title)
	runtime.EventsEmit(a.ctx, "navigate", a.GetServerURL())
	return nil
}

// GetCurrentDirectory returns the open project directory.
func (a *App) GetCurrentDirectory() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentDir
}

// GetServerURL returns the URL of the running server, or empty string if not running.
func (a *App) GetServerURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.serverPort == 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", a.serverPort)
}

// activeSession returns the editor session the user touched last.
func (a *App) activeSession() (*server.Server, *server.Session, error) {
	a.mu.RLock()
	srv := a.server
	a.mu.RUnlock()

	if srv == nil {
		return nil, nil, errors.New("no editor is open")
	}
	sess, ok := srv.Sessions().MostRecent()
	if !ok {
		return nil, nil, errors.New("no editor is open")
	}
	return srv, sess, nil
}

// CopyDocument copies the readable document of the active editor to the
// clipboard.
func (a *App) CopyDocument() error {
	_, sess, err := a.activeSession()
	if err != nil {
		return a.fail("Copy failed", err)
	}

	clip := export.ClipboardFunc(func(text string) error {
		return runtime.ClipboardSetText(a.ctx, text)
	})
	if _, err := export.Copy(sess.Controller, clip); err != nil {
		return a.fail("Copy failed", err)
	}
	return nil
}

// SaveProject writes index.html, styles.css and script.js of the active
// editor into a directory the user picks.
func (a *App) SaveProject() (string, error) {
	_, sess, err := a.activeSession()
	if err != nil {
		return "", a.fail("Save failed", err)
	}

	dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title:                "Save Project To",
		DefaultDirectory:     GetDefaultDirectory(),
		CanCreateDirectories: true,
	})
	if err != nil {
		return "", a.fail("Save failed", err)
	}
	if dir == "" {
		return "", nil
	}

	if err := export.DownloadProject(a.ctx, sess.Controller.Fragments(), export.DirSaver{Dir: dir}); err != nil {
		return "", a.fail("Save failed", err)
	}
	return dir, nil
}

// SaveScreenshot captures the preview of the active editor and saves it
// as a PNG file the user picks.
func (a *App) SaveScreenshot() (string, error) {
	srv, sess, err := a.activeSession()
	if err != nil {
		return "", a.fail("Screenshot failed", err)
	}

	png, err := srv.Screenshot(a.ctx, sess)
	if err != nil {
		return "", a.fail("Screenshot failed", err)
	}

	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save Screenshot",
		DefaultFilename: export.ScreenshotFile,
		Filters: []runtime.FileFilter{
			{DisplayName: "PNG Images (*.png)", Pattern: "*.png"},
		},
	})
	if err != nil {
		return "", a.fail("Screenshot failed", err)
	}
	if path == "" {
		return "", nil
	}

	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", a.fail("Screenshot failed", tinkerpen.NewExportError("screenshot", path, err))
	}
	return path, nil
}

// fail shows err in a dialog and returns it.
func (a *App) fail(title string, err error) error {
	msg := err.Error()
	var exportErr *tinkerpen.ExportError
	if errors.As(err, &exportErr) && exportErr.Hint != "" {
		msg += "\n\n" + exportErr.Hint
	}
	runtime.MessageDialog(a.ctx, runtime.MessageDialogOptions{
		Type:    runtime.ErrorDialog,
		Title:   title,
		Message: msg,
	})
	return err
}

// GetHandler returns the HTTP handler for the webview. With a server
// running it serves the editor, otherwise the welcome screen.
func (a *App) GetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.RLock()
		srv := a.server
		a.mu.RUnlock()

		if srv != nil {
			srv.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(welcomeHTML))
	})
}

const welcomeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8"/>
    <meta content="width=device-width, initial-scale=1.0" name="viewport"/>
    <title>tinkerpen</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: #1e1f26;
            color: #e6e6e6;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 2rem;
        }
        .container { text-align: center; max-width: 560px; }
        h1 { font-size: 2.25rem; margin-bottom: 1rem; color: #f5c451; }
        p { color: #9aa0ae; line-height: 1.6; margin-bottom: 2rem; }
        .actions { display: flex; gap: 1rem; justify-content: center; }
        button {
            background: #3a3d4a;
            border: 1px solid #555a6b;
            color: #fff;
            padding: 0.75rem 1.5rem;
            font-size: 1rem;
            border-radius: 6px;
            cursor: pointer;
        }
        button:hover { background: #4a4e5e; }
        #status { margin-top: 1rem; font-size: 0.875rem; min-height: 1.5em; }
        .error { color: #ef4444; }
    </style>
</head>
<body>
    <div class="container">
        <h1>tinkerpen</h1>
        <p>Edit HTML, CSS and JavaScript side by side and watch the result in a live preview.</p>
        <div class="actions">
            <button id="newPen">New Pen</button>
            <button id="openDir">Open Project</button>
        </div>
        <p id="status"></p>
    </div>
    <script>
        function initApp() {
            const statusEl = document.getElementById('status');

            function showError(err) {
                statusEl.textContent = 'Error: ' + err;
                statusEl.className = 'error';
            }

            document.getElementById('newPen').addEventListener('click', function() {
                window.go.main.App.NewPen().catch(showError);
            });
            document.getElementById('openDir').addEventListener('click', function() {
                window.go.main.App.OpenDirectory().catch(showError);
            });
        }

        function waitForWails() {
            if (window.go && window.runtime) {
                initApp();
                window.runtime.EventsOn('navigate', function(url) {
                    window.location.href = url;
                });
            } else {
                setTimeout(waitForWails, 50);
            }
        }

        if (document.readyState === 'loading') {
            document.addEventListener('DOMContentLoaded', waitForWails);
        } else {
            waitForWails();
        }
    </script>
</body>
</html>`
