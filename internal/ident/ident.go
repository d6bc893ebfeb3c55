// Package ident generates identifiers for stored rows and sessions.
//
// Record ids are snowflake ids (time ordered, fit in a BIGINT, and sort in
// insertion order, which keeps display_order ties stable).  Session ids are
// KSUIDs because they end up in signed cookies and must not be guessable
// from a neighbour.
package ident

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID returns a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRecordID returns a snowflake id string.  The node number comes from
// SNOWFLAKE_NODE (default 1).  If the node cannot be built the function
// falls back to a KSUID so callers always get a unique id.
func NewRecordID() string {
	nodeOnce.Do(func() {
		n := int64(1)
		if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
			if v, err := strconv.ParseInt(env, 10, 64); err == nil {
				n = v
			}
		}
		node, _ = snowflake.NewNode(n)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
