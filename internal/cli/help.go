package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D2A679")).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#D2A679")).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter creates a custom help printer with Lipgloss styling. Help
// is context-sensitive: the selected command's flags follow the global ones.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		node := ctx.Selected()
		if node == nil {
			node = ctx.Model.Node
		}

		// Title and description
		sb.WriteString(helpTitleStyle.Render("Brownie 🟤"))
		sb.WriteString("\n")
		desc := ctx.Model.Help
		if node != ctx.Model.Node && node.Help != "" {
			desc = node.Help
		}
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")

		// Usage
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usage(ctx, node))
		sb.WriteString("\n")

		// Commands section
		commands := getCommands(node)
		if len(commands) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Commands:"))
			sb.WriteString("\n")
			for _, cmd := range commands {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(fmt.Sprintf("%-8s", cmd.name)))
				if cmd.help != "" {
					sb.WriteString("  ")
					sb.WriteString(cmd.help)
				}
				sb.WriteString("\n")
			}
		}

		// Flags section
		flags := getFlags(ctx, node)
		if len(flags) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Flags:"))
			sb.WriteString("\n")
			for _, flag := range flags {
				sb.WriteString("  ")
				sb.WriteString(helpFlagStyle.Render(flag.flags))
				if flag.help != "" {
					sb.WriteString("  ")
					sb.WriteString(flag.help)
				}
				if flag.defaultVal != "" {
					sb.WriteString(" ")
					sb.WriteString(helpDefaultStyle.Render("(default: " + flag.defaultVal + ")"))
				}
				if flag.env != "" {
					sb.WriteString(" ")
					sb.WriteString(helpDefaultStyle.Render("($" + flag.env + ")"))
				}
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type command struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
	env        string
}

func usage(ctx *kong.Context, node *kong.Node) string {
	if node == ctx.Model.Node {
		return fmt.Sprintf("%s [flags] [<command>]", ctx.Model.Name)
	}
	return fmt.Sprintf("%s %s [flags]", ctx.Model.Name, node.Path())
}

func getCommands(node *kong.Node) []command {
	var commands []command
	for _, child := range node.Children {
		if child.Hidden || child.Type != kong.CommandNode {
			continue
		}
		name := child.Name
		if node.DefaultCmd == child {
			name += "*"
		}
		commands = append(commands, command{name: name, help: child.Help})
	}
	return commands
}

func getFlags(ctx *kong.Context, node *kong.Node) []flag {
	var flags []flag

	// Always include help flag
	flags = append(flags, flag{
		flags: "-h, --help",
		help:  "Show context-sensitive help.",
	})

	all := ctx.Model.Node.Flags
	if node != ctx.Model.Node {
		all = append(append([]*kong.Flag(nil), all...), node.Flags...)
	}

	for _, f := range all {
		if f.Name == "help" || f.Hidden {
			continue // Already added
		}

		flagStr := ""
		if f.Short != 0 {
			flagStr = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		} else {
			flagStr = fmt.Sprintf("--%s", f.Name)
		}

		if !f.IsBool() {
			flagStr += "=" + strings.ToUpper(f.FormatPlaceHolder())
		}

		var env string
		if len(f.Envs) > 0 {
			env = f.Envs[0]
		}

		flags = append(flags, flag{
			flags:      flagStr,
			help:       f.Help,
			defaultVal: f.Default,
			env:        env,
		})
	}

	return flags
}
