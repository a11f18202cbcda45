// Package handler defines the deferred-delete handler: the collaborator
// that turns silent primary-index overwrites into the DELETE statements
// secondary indexes still need to see.
package handler

import (
	"github.com/davidvella/lsmerge/statement"
)

// Handler receives one notification per silent overwrite: newStmt
// replaced oldStmt without an explicit DELETE between them. The handler
// manufactures the surrogate DELETE and owns it from then on.
//
// Destroy releases any surrogates not yet delivered; it is called exactly
// once, when the merge that was given the handler closes.
type Handler interface {
	Process(oldStmt, newStmt *statement.Statement) error
	Destroy()
}

// Collector is a Handler that accumulates surrogate DELETEs in the order
// they were generated, newest overwrite first.
type Collector struct {
	stmts []*statement.Statement
}

func (c *Collector) Process(oldStmt, newStmt *statement.Statement) error {
	c.stmts = append(c.stmts, statement.SurrogateDelete(oldStmt, newStmt.LSN))
	return nil
}

// Statements hands over the collected surrogates; the caller owns them
// afterwards.
func (c *Collector) Statements() []*statement.Statement {
	stmts := c.stmts
	c.stmts = nil
	return stmts
}

func (c *Collector) Destroy() {
	c.stmts = nil
}
