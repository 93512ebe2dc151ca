// Package model defines the provider-neutral completion capability the guided
// conversation engine reasons against. A Request carries the standing
// instructions, the visible dialogue window and the declared decision shapes
// (as JSON-schema tool definitions); a Response carries free text and any tool
// calls the provider chose to make. Concrete backends live in sub-packages
// (openai, anthropic); MockModel provides scripted completions for tests.
package model
