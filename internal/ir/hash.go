package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDataset = "testsched/dataset/v1"
	DomainConfig  = "testsched/config/v1"
	DomainResult  = "testsched/result/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical JSON of v under domain.
func HashCanonical(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// DatasetHash identifies a dataset by content.
func DatasetHash(d *Dataset) (string, error) {
	return HashCanonical(DomainDataset, d)
}

// ResultHash identifies a scheduling or sequence result by content.
// Two runs over identical input and configuration must produce equal hashes.
func ResultHash(result any) (string, error) {
	return HashCanonical(DomainResult, result)
}
