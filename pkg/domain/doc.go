// Package domain contains the core domain entities of the user service.
// These types represent the business concepts (users and their accounts) and
// are intentionally free of infrastructure concerns so they can be shared
// across packages.
package domain
