package slash

import "strings"

// Command 表示内置斜杠命令的标识符。
type Command string

const (
	CommandSources  Command = "sources"
	CommandClear    Command = "clear"
	CommandExport   Command = "export"
	CommandCopy     Command = "copy"
	CommandSessions Command = "sessions"
	CommandResume   Command = "resume"
	CommandStatus   Command = "status"
	CommandHelp     Command = "help"
	CommandQuit     Command = "quit"
	CommandExit     Command = "exit"
)

// Item 代表弹窗中的一行条目。
type Item struct {
	Command     Command
	Usage       string
	Description string
}

// Token 返回无前导斜杠的匹配键。
func (i Item) Token() string { return string(i.Command) }

// DisplayName 返回带前缀斜杠的展示名称。
func (i Item) DisplayName() string {
	if i.Usage != "" {
		return "/" + string(i.Command) + " " + i.Usage
	}
	return "/" + string(i.Command)
}

// Builtin 按展示顺序返回内置命令。
func Builtin() []Item {
	return []Item{
		{Command: CommandSources, Description: "show internal research sources used by the last answer"},
		{Command: CommandClear, Description: "clear the conversation"},
		{Command: CommandExport, Usage: "[file]", Description: "write the research brief to a text file"},
		{Command: CommandCopy, Description: "copy the last answer to the clipboard"},
		{Command: CommandSessions, Description: "list saved sessions"},
		{Command: CommandResume, Usage: "[id]", Description: "resume a saved session (default: latest)"},
		{Command: CommandStatus, Description: "show model, market source and index state"},
		{Command: CommandHelp, Description: "list commands"},
		{Command: CommandQuit, Description: "save the session and exit"},
		{Command: CommandExit, Description: "alias of /quit"},
	}
}

// Parse 拆分 "/cmd args"，非斜杠输入返回 ok=false。
func Parse(input string) (Command, string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(input, "/")
	name, args, _ := strings.Cut(body, " ")
	return Command(strings.ToLower(name)), strings.TrimSpace(args), true
}
