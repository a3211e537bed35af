package systems

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/resources"
)

type CommandKind uint8

const (
	// A watched file was created or written.
	CommandFileChanged CommandKind = iota
	CommandListResources
	CommandGetAttributes
	CommandSetAttribute
	CommandLoad
	CommandOpen
	CommandDuplicate
	CommandSave
	CommandDelete
	CommandRename
	CommandDump
)

var commandKindNames = map[CommandKind]string{
	CommandFileChanged:   "file_changed",
	CommandListResources: "list",
	CommandGetAttributes: "attributes",
	CommandSetAttribute:  "set_attribute",
	CommandLoad:          "load",
	CommandOpen:          "open",
	CommandDuplicate:     "duplicate",
	CommandSave:          "save",
	CommandDelete:        "delete",
	CommandRename:        "rename",
	CommandDump:          "dump",
}

func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseResourceAction maps the action segment of an editor route to a command.
func ParseResourceAction(action string) (CommandKind, bool) {
	switch action {
	case "load":
		return CommandLoad, true
	case "open":
		return CommandOpen, true
	case "duplicate":
		return CommandDuplicate, true
	case "save":
		return CommandSave, true
	case "delete":
		return CommandDelete, true
	}
	return 0, false
}

/** @brief The outcome of a command, sent back on its Reply channel. */
type CommandResult struct {
	OK   bool
	Data any
	Err  error
}

/**
 * @brief A request executed by the engine loop. Producers running on other
 * goroutines never touch the loaders themselves.
 */
type Command struct {
	Kind          CommandKind
	ResourceName  string
	TypeName      string
	AttributeName string
	Value         resources.AttributeValue
	Index         int
	NewName       string
	Path          string
	/** @brief Receives the result when not nil. Must be buffered. */
	Reply chan CommandResult
}

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	MaxDepth:                6,
}

// Execute runs cmd against the loaders and answers on its reply channel.
func (rs *ResourceSystem) Execute(cmd Command) CommandResult {
	result := rs.execute(cmd)
	if result.Err != nil {
		core.LogError("command %s failed: %s", cmd.Kind, result.Err.Error())
	}
	if cmd.Reply != nil {
		select {
		case cmd.Reply <- result:
		default:
			core.LogWarn("command %s reply dropped", cmd.Kind)
		}
	}
	return result
}

func (rs *ResourceSystem) execute(cmd Command) CommandResult {
	switch cmd.Kind {
	case CommandFileChanged:
		refreshed := rs.OnFileChanged(cmd.Path)
		return CommandResult{OK: true, Data: refreshed}
	case CommandListResources:
		return CommandResult{OK: true, Data: rs.GetResourceNameAndTypeList()}
	}

	l, err := rs.FindResourceLoader(cmd.TypeName)
	if err != nil {
		return CommandResult{Err: err}
	}
	if l.FindResource(cmd.ResourceName) == nil {
		return CommandResult{Err: errors.Wrapf(core.ErrResourceNotFound, "%s %q", cmd.TypeName, cmd.ResourceName)}
	}

	switch cmd.Kind {
	case CommandGetAttributes:
		return CommandResult{OK: true, Data: l.GetResourceAttribute(cmd.ResourceName)}
	case CommandSetAttribute:
		return boolResult(l.SetResourceAttribute(cmd.ResourceName, cmd.AttributeName, cmd.Value, cmd.Index))
	case CommandLoad:
		return boolResult(l.LoadResource(cmd.ResourceName))
	case CommandOpen:
		return boolResult(l.OpenResource(cmd.ResourceName))
	case CommandDuplicate:
		return boolResult(l.DuplicateResource(cmd.ResourceName))
	case CommandSave:
		return boolResult(l.SaveResource(cmd.ResourceName))
	case CommandDelete:
		return boolResult(l.DeleteResource(cmd.ResourceName))
	case CommandRename:
		return boolResult(l.RenameResource(cmd.ResourceName, cmd.NewName))
	case CommandDump:
		data := l.GetResourceData(cmd.ResourceName)
		return CommandResult{OK: data != nil, Data: dumpConfig.Sdump(data)}
	}
	return CommandResult{Err: errors.Errorf("unknown command %d", cmd.Kind)}
}

func boolResult(ok bool) CommandResult {
	return CommandResult{OK: ok}
}
