// Package tui implements the interactive inspector.
//
// The inspector screen shows the live connection Config, a scrolling log of
// channel messages and the connection status. Pressing t opens the tokens
// popover, which stages API key and user JWT changes in a realtime.Editor
// and applies them in one step.
package tui
