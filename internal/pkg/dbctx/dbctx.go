package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own *gorm.DB when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// New is a convenience for the common no-transaction case.
func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
