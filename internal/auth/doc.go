// Package auth provides bearer-token authentication and role-based
// authorization (RBAC) services and fiber middleware.
package auth
