package chatrelay

import (
	"fmt"
)

// Plugin represents a plugin (its name and action definitions)
type Plugin struct {
	Name string

	// Commands are evaluated on messages addressed to the relay itself
	Commands []ActionDefinition

	// HearActions are evaluated on every message seen on an endpoint
	HearActions []ActionDefinition

	// Logger is attached by the relay when the plugin is registered
	Logger SLogger
}

// ActionDefinition represents how an action is triggered, published, used and described
// along with defining the function defining its behavior
type ActionDefinition struct {
	// Indicates whether the action should be omitted from the help message
	Hidden bool

	// Matcher that will determine whether or not the action should be triggered
	Match Matcher

	// Usage example
	Usage string

	// Help description for the action
	Description string

	// Function to execute if the Matcher matches
	Answer Answerer
}

// String returns a friendly description of an ActionDefinition
func (a ActionDefinition) String() string {
	return fmt.Sprintf("`%s`: %s", a.Usage, a.Description)
}

// IncomingMessage is a normalized message handed to plugin actions
type IncomingMessage struct {
	// Origin is the endpoint the message was seen on
	Origin Endpoint

	// NormalizedText is the message text, stripped of the relay addressing for commands
	NormalizedText string

	RelayMessage
}

// Matcher is the function that determines whether or not an action should be triggered
type Matcher func(m *IncomingMessage) bool

// Answerer is what gets executed when an ActionDefinition is triggered. A nil answer means
// nothing is sent
type Answerer func(m *IncomingMessage) *Answer

// Answer holds the data of an action's answer
type Answer struct {
	Text string

	// ImageURL is an optional image to upload along with the answer
	ImageURL string
}
