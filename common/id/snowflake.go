package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// Init initializes the Snowflake node with the given node ID. Only the first
// call (or the first New) picks the node.
func Init(nodeID int64) error {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	if nodeErr != nil {
		return fmt.Errorf("creating snowflake node %d: %w", nodeID, nodeErr)
	}
	return nil
}

// New generates a new time-ordered int64 ID. Used to tag webhook deliveries
// so every log line of one delivery can be correlated. Tests and tools that
// never call Init get ids from node 0.
func New() int64 {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(0)
	})
	if node == nil {
		panic(fmt.Sprintf("snowflake node not initialized: %v", nodeErr))
	}
	return node.Generate().Int64()
}
