// Package ui provides styled terminal output for the rtinspect commands.
//
// Unlike the interactive TUI, these components follow a "print once" pattern:
// a command prints a header box, its results and, on failure, an error box
// with troubleshooting tips.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Credentials", "rtinspect keys", map[string]string{"Project": ref})
//	if err != nil {
//	    p.PrintError("Fetch failed", err, []string{settings.GetTroubleshootingHint(err)})
//	}
//
// Parameter documentation is rendered with RenderParam: the name (or
// "no-name"), an "Optional" tag or a "REQUIRED" badge, the type (or
// "no type") and the description when there is one.
//
// # Logging Integration
//
// Logging is controlled by the RTINSPECT_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output is displayed cleanly.
package ui
