package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

const defaultNode = 1

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered int64 that is unique across nodes.
// Falls back to node 1 when Init was never called.
func New() int64 {
	once.Do(func() {
		node, _ = snowflake.NewNode(defaultNode)
	})
	return node.Generate().Int64()
}
