package ir

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEntry    = "nested/entry/v1"
	DomainSnapshot = "nested/snapshot/v1"
)

// cidWithDomain computes a CIDv1 (raw codec, sha2-256) with domain separation.
// Hashed bytes: domain + 0x00 + data.
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func cidWithDomain(domain string, data []byte) (string, error) {
	buf := make([]byte, 0, len(domain)+1+len(data))
	buf = append(buf, domain...)
	buf = append(buf, 0x00) // Null separator - CRITICAL for security
	buf = append(buf, data...)

	c, err := cid.NewPrefixV1(cid.Raw, multihash.SHA2_256).Sum(buf)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// EntryHash computes the content-addressed hash of a log entry.
// The hash covers the log id and seq, so two identical operations appended
// to the same log still get distinct hashes.
func EntryHash(logID string, op Operation, seq int64) (string, error) {
	obj := map[string]any{
		"log": logID,
		"op":  string(op.Op),
		"seq": seq,
	}
	if op.Key != nil {
		obj["key"] = *op.Key
	}
	if op.Value != nil {
		obj["value"] = op.Value
	}
	if op.Position != nil {
		obj["position"] = FormatPosition(*op.Position)
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryHash: failed to marshal: %w", err)
	}
	return cidWithDomain(DomainEntry, canonical)
}

// SnapshotHash fingerprints a materialized tree. Two replays of the same
// log must produce the same snapshot hash.
func SnapshotHash(tree *Tree) (string, error) {
	if tree == nil {
		tree = NewTree()
	}
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return cidWithDomain(DomainSnapshot, canonical)
}

// MustEntryHash is like EntryHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEntryHash(logID string, op Operation, seq int64) string {
	h, err := EntryHash(logID, op, seq)
	if err != nil {
		panic(err)
	}
	return h
}
