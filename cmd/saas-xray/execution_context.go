package main

import (
	"sync"

	"github.com/spf13/cobra"
)

// annotationPlainOutput marks commands whose output is consumed directly by
// humans or scripts; their failures print plainly instead of as structured
// log lines.
const annotationPlainOutput = "plain-output"

// commandExecutionContext captures which command is running so the fatal
// error path can match its logging mode.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	executionContextMu sync.Mutex
	executionContext   commandExecutionContext
)

func currentCommandExecutionContext() commandExecutionContext {
	executionContextMu.Lock()
	defer executionContextMu.Unlock()
	return executionContext
}

func setCommandExecutionContext(ctx commandExecutionContext) {
	executionContextMu.Lock()
	defer executionContextMu.Unlock()
	executionContext = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationPlainOutput] == "true" {
			return false
		}
	}
	return true
}
