package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeErr  error
)

// Init configures the generator node. Calling it more than once keeps the first node.
// An invalid node id is reported and ids keep coming from node 0.
func Init(nodeID int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
		if nodeErr != nil {
			node, _ = snowflake.NewNode(0)
		}
	})
	return nodeErr
}

// GenerateID returns a new snowflake id, initializing node 1 when Init was never called.
func GenerateID() types.SnowflakeID {
	_ = Init(1)
	return types.SnowflakeID(node.Generate().Int64())
}
