package cache

import (
	"fmt"
	"time"
)

const (
	TranslationKeyPrefix = "translations:%s"
	GeoKeyPrefix         = "geo:%s"
)

const (
	// TranslationTTL bounds how long a hash can outlive its comment if the
	// cascade's Redis cleanup fails.
	TranslationTTL = 7 * 24 * time.Hour
	GeoTTL         = 24 * time.Hour
)

// TranslationKey is the hash holding every cached translation of a comment,
// one field per target language.
func TranslationKey(commentID string) string {
	return fmt.Sprintf(TranslationKeyPrefix, commentID)
}

func GeoKey(ip string) string {
	return fmt.Sprintf(GeoKeyPrefix, ip)
}
