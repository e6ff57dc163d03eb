// Package host defines the narrow capability interfaces the script core
// consumes, plus in-process reference implementations good enough for
// the CLI and for tests. The real host application supplies its own.
package host

// FileSystem is the virtual filesystem capability. Paths are
// slash-separated strings; storage format is the host's business.
type FileSystem interface {
	Read(path string) (string, error)
	Write(path string, content string) error
	Delete(path string) error
	MkDir(path string) error
	Exists(path string) (bool, error)
	List(path string) ([]string, error)
}

// EventHandler receives the payload of a named event. Keys are the
// emitter's key=value pairs; "name" is always set to the event name.
type EventHandler func(payload map[string]any)

// EventBus is the semantic event capability. Subscribers for one name
// are invoked in subscription order; dispatch policy beyond that
// (wildcards, priorities) is out of scope here.
type EventBus interface {
	Subscribe(name string, fn EventHandler) (unsubscribe func())
	Emit(name string, payload map[string]any)
}

// Commander invokes host actions by name: Exec is fire-and-forget,
// Query is request/response.
type Commander interface {
	Exec(name string, args []any) error
	Query(name string, args []any) (any, error)
}

// Windows is the window/app control capability.
type Windows interface {
	Launch(id string) error
	Close(id string) error
	Focus(id string) error
	Minimize(id string) error
	Maximize(id string) error
}

// Dialogs is the user-interaction capability. Confirm and Prompt
// return completion channels; the interpreter suspends on them.
type Dialogs interface {
	Notify(message string)
	Confirm(message string) <-chan bool
	Prompt(message string) <-chan string
}

// Context bundles every capability the engine needs at initialization.
type Context struct {
	FS       FileSystem
	Events   EventBus
	Commands Commander
	Windows  Windows
	Dialogs  Dialogs
}
