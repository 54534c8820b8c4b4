// Package merkle implements the binary hash tree used to commit to an ordered
// list of transaction components and to prove membership of a subset of them.
//
// Hashes are domain separated:
//
//	leaf       = BLAKE3(0x00 || nonce || kind || payload)
//	node       = BLAKE3(0x01 || left || right)
//	commitment = BLAKE3(0x02 || u32be(leafCount) || treeRoot)
//
// A node without a sibling is promoted unchanged to the next level. Sibling
// positions are derived from the leaf index and the committed leaf count, so a
// proof is only the list of sibling hashes.
package merkle

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	prefixLeaf   = 0x00
	prefixNode   = 0x01
	prefixCommit = 0x02
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashFromBytes copies a 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash length: %d", len(b))
	}

	copy(h[:], b)

	return h, nil
}

// Proof is the ordered list of sibling hashes from a leaf to the tree root.
type Proof []Hash

// HashLeaf computes the leaf hash of one component.
func HashLeaf(nonce Hash, kind byte, payload []byte) Hash {
	h := blake3.New()
	h.Write([]byte{prefixLeaf})
	h.Write(nonce[:])
	h.Write([]byte{kind})
	h.Write(payload)

	var out Hash
	h.Sum(out[:0])

	return out
}

// hashNode combines two child hashes.
func hashNode(left, right Hash) Hash {
	var buf [1 + 64]byte
	buf[0] = prefixNode
	copy(buf[1:33], left[:])
	copy(buf[33:], right[:])

	return blake3.Sum256(buf[:])
}

// commit binds the tree root to the number of leaves it covers.
func commit(count int, root Hash) Hash {
	var buf [1 + 4 + 32]byte
	buf[0] = prefixCommit
	binary.BigEndian.PutUint32(buf[1:5], uint32(count))
	copy(buf[5:], root[:])

	return blake3.Sum256(buf[:])
}

// Tree is an immutable Merkle tree over an ordered list of leaf hashes.
type Tree struct {
	levels     [][]Hash // levels[0] are the leaves, the last level holds the tree root
	commitment Hash     // commitment binds the tree root and leaf count
}

// Build constructs the tree over leaves. The input slice is copied.
func Build(leaves []Hash) *Tree {
	level := make([]Hash, len(leaves))
	copy(level, leaves)

	t := &Tree{levels: [][]Hash{level}}

	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashNode(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}

		t.levels = append(t.levels, next)
		level = next
	}

	var top Hash
	if len(level) == 1 {
		top = level[0]
	}

	t.commitment = commit(len(leaves), top)

	return t
}

// Root returns the commitment over the whole leaf list.
func (t *Tree) Root() Hash {
	return t.commitment
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.levels[0])
}

// Leaf returns the leaf hash at index.
func (t *Tree) Leaf(index int) Hash {
	return t.levels[0][index]
}

// Proof returns the sibling path for the leaf at index.
func (t *Tree) Proof(index int) (Proof, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, t.Len())
	}

	var proof Proof

	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}

		index /= 2
	}

	return proof, nil
}

// Verify reports whether leaf sits at index in a tree of count leaves whose
// commitment is root. Every sibling in proof must be consumed.
func Verify(leaf Hash, index, count int, proof Proof, root Hash) bool {
	if count <= 0 || index < 0 || index >= count {
		return false
	}

	h := leaf
	used := 0

	for n := count; n > 1; n = (n + 1) / 2 {
		switch {
		case index%2 == 1:
			if used >= len(proof) {
				return false
			}
			h = hashNode(proof[used], h)
			used++
		case index+1 < n:
			if used >= len(proof) {
				return false
			}
			h = hashNode(h, proof[used])
			used++
		}

		index /= 2
	}

	if used != len(proof) {
		return false
	}

	return commit(count, h) == root
}
