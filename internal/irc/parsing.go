package irc

import "strings"

// CheckAddressed returns true if message starts with botNick followed by a separator or end of string.
func CheckAddressed(message, botNick string) bool {
	if botNick == "" {
		return true
	}
	if !strings.HasPrefix(message, botNick) {
		return false
	}
	if len(message) == len(botNick) {
		return true
	}
	// Check that the next character is a separator
	next := message[len(botNick)]
	return next == ' ' || next == ':' || next == ','
}

// CheckValid determines if a message should be processed.
// Returns true if:
// - Bot was addressed directly, OR
// - Message is private (DM)
// AND there's at least one argument.
func CheckValid(isAddressed, isPrivate bool, argCount int) bool {
	return (isAddressed || isPrivate) && argCount > 0
}

// CheckPrivate returns true if target is not a channel (doesn't start with #).
func CheckPrivate(target string) bool {
	return !strings.HasPrefix(target, "#")
}

// StripAddress removes the leading "<botnick>:"-style token from an already
// addressed argument list.
func StripAddress(args []string, botNick string) []string {
	if len(args) == 0 {
		return args
	}
	head := strings.TrimRight(args[0], ":,")
	if head == botNick {
		return args[1:]
	}
	return args
}
