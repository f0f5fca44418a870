// Package mocks provides mock implementations for testing the jobs API.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockJobStore(ctrl)
//	mockStore.EXPECT().Fetch(gomock.Any(), "job-1").Return(rec, nil)
package mocks

// Generate mocks for the JobStore and DiagnosticsSink interfaces from the internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/nemde-api/jobs-api/internal/core JobStore,DiagnosticsSink
