package tui

// savedMsg reports the result of writing the zip.
type savedMsg struct {
	err  error
	path string
}

// importedMsg carries the configuration files read from disk.
type importedMsg struct {
	err   error
	files map[string][]byte
	from  string
}
