package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for the password digest.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// PasswordHasher produces the deterministic digest stored in place of a
// user's password. The salt is derived from the application secret, so
// re-applying the transform to a login candidate yields the stored digest
// exactly; login verification is a digest comparison, never a plaintext one.
func PasswordHasher(appSecret string) func(password string) string {
	salt := sha256.Sum256([]byte(appSecret))

	return func(password string) string {
		digest := argon2.IDKey([]byte(password), salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
		return hex.EncodeToString(digest)
	}
}
