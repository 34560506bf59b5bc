// Package userapi holds assets shared by the binaries of the user service.
package userapi

import "embed"

// Migrations contains the goose SQL migrations applied by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
