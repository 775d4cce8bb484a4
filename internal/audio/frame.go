package audio

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	MIMEPCMPrefix = "audio/pcm"
	MIMEJPEG      = "image/jpeg"
)

func PCMMIMEType(rate int) string {
	return fmt.Sprintf("%s;rate=%d", MIMEPCMPrefix, rate)
}

// ParsePCMRate extracts the sample rate from a descriptor such as
// "audio/pcm;rate=24000". Returns fallback when the descriptor carries no
// usable rate parameter.
func ParsePCMRate(mimeType string, fallback int) int {
	if !strings.HasPrefix(mimeType, MIMEPCMPrefix) {
		return fallback
	}
	for _, param := range strings.Split(mimeType, ";")[1:] {
		param = strings.TrimSpace(param)
		if rest, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return fallback
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
