// Package chat holds the transient conversation primitives shared by the
// guidance pipeline: messages, roles and the student profile. Nothing here
// outlives a single request.
package chat

// Message roles as they appear in conversation history and prompts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn.
type Message struct {
	Role    string
	Content string
}

// Profile carries the optional student attributes used to personalize
// prompts. Empty fields are simply omitted from the built context.
type Profile struct {
	Age       int
	Education string
	Purpose   string
	Gender    string
}

// LastN returns the last n messages of history, oldest first.
// Returns history unchanged when it is already short enough.
func LastN(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
