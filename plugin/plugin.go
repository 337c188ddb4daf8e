// Package plugin provides a fluent API for assembling relay plugins from actions built with
// github.com/alexandre-normand/chatrelay/actions
package plugin

import (
	"github.com/alexandre-normand/chatrelay"
)

// PluginBuilder holds a plugin to build
type PluginBuilder struct {
	plugin *chatrelay.Plugin
}

// New creates a new PluginBuilder with a plugin with the given name and empty set of actions
func New(name string) (pb *PluginBuilder) {
	pb = new(PluginBuilder)
	pb.plugin = new(chatrelay.Plugin)
	pb.plugin.Name = name
	pb.plugin.Commands = make([]chatrelay.ActionDefinition, 0)
	pb.plugin.HearActions = make([]chatrelay.ActionDefinition, 0)

	return pb
}

// WithCommand adds a command to the plugin
func (pb *PluginBuilder) WithCommand(command chatrelay.ActionDefinition) *PluginBuilder {
	pb.plugin.Commands = append(pb.plugin.Commands, command)
	return pb
}

// WithHearAction adds an hear action to the plugin
func (pb *PluginBuilder) WithHearAction(hearAction chatrelay.ActionDefinition) *PluginBuilder {
	pb.plugin.HearActions = append(pb.plugin.HearActions, hearAction)
	return pb
}

// Build returns the created Plugin instance
func (pb *PluginBuilder) Build() (p *chatrelay.Plugin) {
	return pb.plugin
}
