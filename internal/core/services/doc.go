// Package services implements the core business logic for Quarry.
//
// Services orchestrate domain types and driven ports. They implement the
// driving port interfaces consumed by the CLI and hold no infrastructure
// concerns of their own.
package services
