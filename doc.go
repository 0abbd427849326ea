// Package main provides the entry point for the silk-admin backend.
// It runs a JSON API built on the Fiber framework for managing users,
// roles and permissions (RBAC) and multi-language web content. The
// application uses gorm for data persistence and issues bearer access
// tokens for API authentication.
package main
