package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Banner for the application
const Banner = `
    ╔══════════════════════════════════════════════════════════╗
    ║              FOLLOWERSWEEP - BOT FOLLOWER CLEANUP        ║
    ║     identify and remove suspected bot followers          ║
    ╚══════════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var isTTY = term.IsTerminal(int(os.Stdout.Fd()))

// colorize returns a function that wraps text with ANSI color codes when
// stdout is a terminal.
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !isTTY {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintBanner prints the application banner with color
func PrintBanner() {
	fmt.Print(Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a labeled info message
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string) {
	fmt.Println(Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}

// Confirm prompts the operator for a yes/no answer. An empty answer takes
// the default. When stdin is not a terminal the default is returned without
// prompting, so unattended runs never hang.
func Confirm(message string, def bool) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return def
	}

	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}

	fmt.Print(message + suffix)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}
