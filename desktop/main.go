package main

import (
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

func main() {
	// The window shows the welcome screen until a pen or project is opened.
	app := NewApp()

	// Create application menu
	appMenu := createMenu(app)

	// Create application with options
	err := wails.Run(&options.App{
		Title:            "tinkerpen",
		Width:            1280,
		Height:           800,
		MinWidth:         800,
		MinHeight:        600,
		DisableResize:    false,
		Fullscreen:       false,
		Frameless:        false,
		StartHidden:      false,
		HideWindowOnClose: false,
		BackgroundColour: &options.RGBA{R: 30, G: 31, B: 38, A: 1},
		Menu:             appMenu,
		AssetServer: &assetserver.Options{
			Handler: app.GetHandler(),
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []any{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: false,
				HideTitle:                  false,
				HideTitleBar:               false,
				FullSizeContent:            false,
				UseToolbar:                 false,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "tinkerpen",
				Message: "Live HTML, CSS and JavaScript playground.\n\nBuilt with Wails and Go.",
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
	})

	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
}

func createMenu(app *App) *menu.Menu {
	appMenu := menu.NewMenu()

	// File menu
	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("New Pen", keys.CmdOrCtrl("n"), func(cd *menu.CallbackData) {
		app.NewPen()
	})
	fileMenu.AddText("Open Project...", keys.CmdOrCtrl("o"), func(cd *menu.CallbackData) {
		app.OpenDirectory()
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Save Project As...", keys.CmdOrCtrl("s"), func(cd *menu.CallbackData) {
		app.SaveProject()
	})
	fileMenu.AddText("Save Screenshot...", keys.CmdOrCtrl("shift+s"), func(cd *menu.CallbackData) {
		app.SaveScreenshot()
	})

	if goruntime.GOOS != "darwin" {
		fileMenu.AddSeparator()
		fileMenu.AddText("Exit", keys.OptionOrAlt("F4"), func(cd *menu.CallbackData) {
			os.Exit(0)
		})
	}

	// Edit menu (standard on macOS)
	if goruntime.GOOS == "darwin" {
		editMenu := appMenu.AddSubmenu("Edit")
		editMenu.AddText("Undo", keys.CmdOrCtrl("z"), nil)
		editMenu.AddText("Redo", keys.CmdOrCtrl("shift+z"), nil)
		editMenu.AddSeparator()
		editMenu.AddText("Cut", keys.CmdOrCtrl("x"), nil)
		editMenu.AddText("Copy", keys.CmdOrCtrl("c"), nil)
		editMenu.AddText("Paste", keys.CmdOrCtrl("v"), nil)
		editMenu.AddText("Select All", keys.CmdOrCtrl("a"), nil)
	}

	// Document menu
	docMenu := appMenu.AddSubmenu("Document")
	docMenu.AddText("Copy Document", keys.CmdOrCtrl("shift+c"), func(cd *menu.CallbackData) {
		app.CopyDocument()
	})

	return appMenu
}

// GetHomeDirectory returns the user's home directory.
func GetHomeDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// GetDefaultDirectory returns a sensible default directory.
func GetDefaultDirectory() string {
	home := GetHomeDirectory()
	// Check for common locations
	docsDir := filepath.Join(home, "Documents")
	if _, err := os.Stat(docsDir); err == nil {
		return docsDir
	}
	return home
}
