// Package adminauth protects the admin API with HTTP Basic credentials whose
// password is stored as an Argon2id hash.
package adminauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/argon2"

	"github.com/gochang/agri-notify/internal/logger"
)

// Argon2id parameters (OWASP baseline).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// ErrMalformedHash is returned for strings that are not PHC-encoded Argon2id hashes.
var ErrMalformedHash = errors.New("adminauth: malformed argon2id hash")

// HashPassword returns a PHC-encoded Argon2id hash with a random salt:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("adminauth: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks password against an encoded hash in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false, fmt.Errorf("%w: zero parameter", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Middleware enforces Basic auth against username and the Argon2id hash.
// With an empty hash every request is refused, so a misconfigured deployment
// never exposes the admin routes.
func Middleware(username, passwordHash string, log *logger.Logger) gin.HandlerFunc {
	log = log.WithModule("adminauth")
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok && passwordHash != "" && subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1 {
			match, err := VerifyPassword(pass, passwordHash)
			if err != nil {
				log.WithError(err).ErrorContext(c.Request.Context(), "Admin password hash is unusable")
			}
			if match {
				c.Next()
				return
			}
		}

		log.WithField("client_ip", c.ClientIP()).WarnContext(c.Request.Context(), "Rejected admin request")
		c.Header("WWW-Authenticate", `Basic realm="admin"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
