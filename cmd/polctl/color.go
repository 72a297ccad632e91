package main

import "github.com/fatih/color"

// Color helpers mirror the teacher's color.go: one small SprintFunc
// wrapper per semantic color, colors enabled unconditionally (the
// teacher enables color unconditionally too, leaving TTY detection to
// fatih/color's own isatty checks via go-isatty).
func cyan(s string) string   { return sprint(color.FgHiCyan, s) }
func green(s string) string  { return sprint(color.FgHiGreen, s) }
func yellow(s string) string { return sprint(color.FgHiYellow, s) }
func red(s string) string    { return sprint(color.FgHiRed, s) }

func sprint(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()
	return c.SprintFunc()(s)
}
