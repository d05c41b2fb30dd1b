// Package mocks provides mock implementations of the portal's ports for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	notifier := mocks.NewMockNotifier(ctrl)
//	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(true).Times(1)
package mocks

// Generate mocks for the gateway and auth ports.
// Notifier and Navigator back the unauthorized-response coordinator tests;
// TokenStorage and Authenticator back the client fetcher and HTTP handler tests.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/vibolsen/campus-portal/internal/ports Notifier,Navigator,TokenStorage,Authenticator
