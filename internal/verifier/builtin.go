package verifier

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Built-in puzzle kinds. Config carries sha256 digests of the expected
// answers, never the plaintext, so a leaked config file does not leak
// solutions.

type answerVerifier struct {
	digest []byte
}

// NewAnswer verifies a single free-text answer. Input is trimmed,
// lowercased and whitespace-collapsed before hashing, so "Mount  Fuji "
// and "mount fuji" are the same answer.
func NewAnswer(digestHex string) (Verifier, error) {
	digest, err := decodeDigest(digestHex)
	if err != nil {
		return nil, err
	}
	return &answerVerifier{digest: digest}, nil
}

func (v *answerVerifier) Evaluate(submission json.RawMessage) (bool, error) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(submission, &req); err != nil {
		return false, fmt.Errorf("malformed submission: %w", err)
	}
	return digestMatches(normalizeAnswer(req.Answer), v.digest), nil
}

type quizVerifier struct {
	digests map[string][]byte
}

// NewQuiz verifies a set of named answers; every configured field must
// match. Extra submitted fields are ignored.
func NewQuiz(digestsHex map[string]string) (Verifier, error) {
	if len(digestsHex) == 0 {
		return nil, fmt.Errorf("quiz puzzle needs at least one answer")
	}
	digests := make(map[string][]byte, len(digestsHex))
	for field, digestHex := range digestsHex {
		digest, err := decodeDigest(digestHex)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		digests[field] = digest
	}
	return &quizVerifier{digests: digests}, nil
}

func (v *quizVerifier) Evaluate(submission json.RawMessage) (bool, error) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.Unmarshal(submission, &req); err != nil {
		return false, fmt.Errorf("malformed submission: %w", err)
	}

	// Evaluate every field even after a mismatch so response time does not
	// reveal which answer was wrong.
	ok := true
	for field, digest := range v.digests {
		if !digestMatches(normalizeAnswer(req.Answers[field]), digest) {
			ok = false
		}
	}
	return ok, nil
}

type codeVerifier struct {
	digest []byte
}

// NewCode verifies a fixed code or passphrase. Only surrounding whitespace
// is stripped; codes are case-sensitive.
func NewCode(digestHex string) (Verifier, error) {
	digest, err := decodeDigest(digestHex)
	if err != nil {
		return nil, err
	}
	return &codeVerifier{digest: digest}, nil
}

func (v *codeVerifier) Evaluate(submission json.RawMessage) (bool, error) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(submission, &req); err != nil {
		return false, fmt.Errorf("malformed submission: %w", err)
	}
	return digestMatches(strings.TrimSpace(req.Code), v.digest), nil
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func decodeDigest(digestHex string) ([]byte, error) {
	digest, err := hex.DecodeString(strings.TrimSpace(digestHex))
	if err != nil {
		return nil, fmt.Errorf("digest is not valid hex: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(digest))
	}
	return digest, nil
}

func digestMatches(answer string, digest []byte) bool {
	sum := sha256.Sum256([]byte(answer))
	return subtle.ConstantTimeCompare(sum[:], digest) == 1
}

// DigestHex is a helper for seed tooling and tests: the hex digest the
// config file should carry for a given plaintext answer.
func DigestHex(answer string) string {
	sum := sha256.Sum256([]byte(normalizeAnswer(answer)))
	return hex.EncodeToString(sum[:])
}

// CodeDigestHex is DigestHex for code puzzles, which keep case.
func CodeDigestHex(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
