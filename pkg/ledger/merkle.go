package ledger

import "github.com/danielgonzagat/penin-omega-pdc/pkg/hashchain"

// merkleRoot computes a binary Merkle root over leafHashes (hex strings,
// one per event, in sequence order). An odd node at any level is
// combined with itself, the standard Merkle tree convention. An empty
// slice has no root.
func merkleRoot(algo hashchain.Algorithm, leafHashes []string) (string, error) {
	if len(leafHashes) == 0 {
		return "", nil
	}
	level := make([]string, len(leafHashes))
	copy(level, leafHashes)

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left, err := hashchain.DecodeHex(level[i])
			if err != nil {
				return "", err
			}
			var right []byte
			if i+1 < len(level) {
				right, err = hashchain.DecodeHex(level[i+1])
				if err != nil {
					return "", err
				}
			} else {
				right = left
			}
			combined, err := hashchain.CombinePair(algo, left, right)
			if err != nil {
				return "", err
			}
			next = append(next, combined)
		}
		level = next
	}
	return level[0], nil
}
