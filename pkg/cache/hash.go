package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/screenflow/screenflow/pkg/flow"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// AdjacencyHash hashes an adjacency map in key order, so equal maps hash
// equally regardless of construction order. Neighbour order is significant:
// it drives the layout walk.
func AdjacencyHash(adj flow.Adjacency) string {
	ordered := make([][]int, 0, len(adj))
	for _, n := range adj.Screens() {
		ordered = append(ordered, append([]int{n}, adj[n]...))
	}
	data, _ := json.Marshal(ordered)
	return Hash(data)
}
