//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// Air - Live reload for cmd/portal while editing templates and handlers
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
//   Run with DEV=true so templates and static files are served from disk.
//
// mockgen - Regenerates internal/mocks/ports_mock.go
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
//   Run: go generate ./internal/mocks
//
// golangci-lint - Linting (the //nolint directives in the tree target it)
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
