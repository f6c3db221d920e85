package export

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/argon2"
)

// HashType represents the different hashing algorithms available.
type HashType string

const (
	// HashTypeArgon2id uses the Argon2id algorithm for hashing.
	HashTypeArgon2id HashType = "argon2id"
	// HashTypeSHA256 uses iterated SHA256 for hashing.
	HashTypeSHA256 HashType = "sha256"
)

// Valid reports whether the hash type is supported.
func (h HashType) Valid() bool {
	return h == HashTypeArgon2id || h == HashTypeSHA256
}

// HashID converts a user id to a salted hex hash. memory is in MB and only
// used by Argon2id.
func HashID(id int64, salt string, hashType HashType, iterations, memory uint32) string {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, uint64(id)) //nolint:gosec // ids are positive

	var hash []byte

	switch hashType {
	case HashTypeArgon2id:
		hash = argon2.IDKey(idBytes, []byte(salt), iterations, memory*1024, 1, 32)
	case HashTypeSHA256:
		hash = []byte(salt)

		h := sha256.New()
		for range iterations {
			h.Reset()
			h.Write(idBytes)
			h.Write(hash)
			hash = h.Sum(nil)
		}
	}

	return hex.EncodeToString(hash)
}

// Anonymizer replaces user ids by salted hashes.
type Anonymizer struct {
	Salt        string
	HashType    HashType
	Iterations  uint32
	Memory      uint32
	Concurrency int
}

// Enabled reports whether ids should be hashed.
func (a *Anonymizer) Enabled() bool {
	return a != nil && a.Salt != ""
}

// HashIDs hashes ids concurrently. Results keep the input order and equal
// ids are hashed once.
func (a *Anonymizer) HashIDs(ids []int64) map[int64]string {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	hashes := make([]string, len(unique))

	p := pool.New().WithMaxGoroutines(max(a.Concurrency, 1))
	for i, id := range unique {
		p.Go(func() {
			hashes[i] = HashID(id, a.Salt, a.HashType, a.Iterations, a.Memory)
		})
	}
	p.Wait()

	result := make(map[int64]string, len(unique))
	for i, id := range unique {
		result[id] = hashes[i]
	}

	return result
}
