package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// AvatarURL returns image when set, otherwise the Gravatar of email.
func AvatarURL(image, email string, size int) string {
	if image != "" {
		return image
	}
	return GravatarURL(email, size)
}

// GravatarURL generates a Gravatar URL for the given email address.
// Default size is 200px if not specified
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = 200
	}

	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
