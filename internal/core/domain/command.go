package domain

// Command is an external program invocation.
type Command struct {
	Args []string
	Dir  string
	// Path lists directories searched before the inherited PATH.
	Path []string
	Env  map[string]string
}
