package mux

// keyNames maps raw terminal input, as a browser terminal emits it, to tmux
// key names. Anything not listed is sent literally with send-keys -l.
var keyNames = map[string]string{
	"\r":      "Enter",
	"\n":      "Enter",
	"\t":      "Tab",
	"\x7f":    "BSpace",
	"\x1b":    "Escape",
	"\x1b[A":  "Up",
	"\x1b[B":  "Down",
	"\x1b[C":  "Right",
	"\x1b[D":  "Left",
	"\x1b[H":  "Home",
	"\x1b[F":  "End",
	"\x1b[3~": "DC",
	"\x1b[5~": "PPage",
	"\x1b[6~": "NPage",
}

// KeyName returns the tmux key name for a raw input sequence and whether the
// whole input is a single known key.
func KeyName(keys string) (string, bool) {
	name, ok := keyNames[keys]
	return name, ok
}

// sendKeysArgs builds the send-keys arguments for keys. Literal text always
// uses -l so tmux never reinterprets it as a key name.
func sendKeysArgs(paneID, keys string) []string {
	if name, ok := KeyName(keys); ok {
		return []string{"send-keys", "-t", paneID, name}
	}
	return []string{"send-keys", "-t", paneID, "-l", "--", keys}
}
